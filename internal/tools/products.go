// ABOUTME: Products API proxy tools backed by an external JSON catalog
// ABOUTME: Upstream fetches are single-flight with a bounded read-through cache

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Product is one catalog entry from the upstream products API.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// ProductList is the upstream response shape.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// ProductsClient fetches the product catalog over HTTP. Concurrent fetches
// coalesce onto one in-flight request, and results are cached for CacheTTL
// so filter tools don't refetch the catalog on every call.
type ProductsClient struct {
	url      string
	client   *http.Client
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	cached    *ProductList
	fetchedAt time.Time
}

// NewProductsClient creates a client for the upstream catalog at url.
// A zero cacheTTL disables caching; fetches still coalesce.
func NewProductsClient(url string, timeout, cacheTTL time.Duration) *ProductsClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ProductsClient{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		cacheTTL: cacheTTL,
		logger:   slog.Default().With("component", "products"),
		now:      time.Now,
	}
}

// FetchAll returns the full catalog, from cache when fresh.
func (c *ProductsClient) FetchAll(ctx context.Context) (*ProductList, error) {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		cached := c.cached
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do("catalog", func() (any, error) {
		// A concurrent flight may have refreshed the cache already.
		c.mu.Lock()
		if c.cached != nil && c.now().Sub(c.fetchedAt) < c.cacheTTL {
			cached := c.cached
			c.mu.Unlock()
			return cached, nil
		}
		c.mu.Unlock()

		list, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = list
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ProductList), nil
}

func (c *ProductsClient) fetch(ctx context.Context) (*ProductList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building products request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("products API returned status %d", resp.StatusCode)
	}

	var list ProductList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding products response: %w", err)
	}

	c.logger.Debug("product catalog fetched", "count", len(list.Products))
	return &list, nil
}

// FetchAllProducts fetches the complete product catalog.
type FetchAllProducts struct {
	Client *ProductsClient
}

func (FetchAllProducts) Name() string        { return "fetch_all_products" }
func (FetchAllProducts) Description() string { return "Fetch all products from the API." }

func (FetchAllProducts) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t FetchAllProducts) Call(ctx context.Context, state *State, args json.RawMessage) (any, error) {
	list, err := t.Client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	RecordCall(state, t.Name(), args, list)
	return list, nil
}

// FilterByPriceRange filters products by price range.
type FilterByPriceRange struct {
	Client *ProductsClient
}

func (FilterByPriceRange) Name() string        { return "filter_by_price_range" }
func (FilterByPriceRange) Description() string { return "Filter products by price range." }

func (FilterByPriceRange) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"min_price": {"type": "number", "description": "Minimum price, inclusive"},
			"max_price": {"type": "number", "description": "Maximum price, inclusive"}
		},
		"required": ["min_price", "max_price"]
	}`)
}

func (t FilterByPriceRange) Call(ctx context.Context, state *State, args json.RawMessage) (any, error) {
	var params struct {
		MinPrice *float64 `json:"min_price"`
		MaxPrice *float64 `json:"max_price"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if params.MinPrice == nil || params.MaxPrice == nil {
		return nil, fmt.Errorf("%w: min_price and max_price are required", ErrInvalidArguments)
	}

	list, err := t.Client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]Product, 0)
	for _, p := range list.Products {
		if p.Price >= *params.MinPrice && p.Price <= *params.MaxPrice {
			matched = append(matched, p)
		}
	}

	RecordCall(state, t.Name(), args, matched)
	return matched, nil
}

// FilterByStockAvailability filters products by minimum stock.
type FilterByStockAvailability struct {
	Client *ProductsClient
}

func (FilterByStockAvailability) Name() string { return "filter_by_stock_availability" }
func (FilterByStockAvailability) Description() string {
	return "Filter products by minimum stock availability."
}

func (FilterByStockAvailability) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"min_stock": {"type": "integer", "description": "Minimum units in stock"}
		},
		"required": ["min_stock"]
	}`)
}

func (t FilterByStockAvailability) Call(ctx context.Context, state *State, args json.RawMessage) (any, error) {
	var params struct {
		MinStock *int `json:"min_stock"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if params.MinStock == nil {
		return nil, fmt.Errorf("%w: min_stock is required", ErrInvalidArguments)
	}

	list, err := t.Client.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]Product, 0)
	for _, p := range list.Products {
		if p.Stock >= *params.MinStock {
			matched = append(matched, p)
		}
	}

	RecordCall(state, t.Name(), args, matched)
	return matched, nil
}
