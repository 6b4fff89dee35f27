package foodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/2beens/ninjatraining/internal/macros"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultUserAgent = "NinjaTraining/1.0 (food journal)"
	searchPageSize   = 10
	cacheExpireSecs  = 60 * 60
	upstreamLabel    = "foodfacts"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrInvalidBarcode  = errors.New("invalid barcode")
	ErrUpstream        = errors.New("food database request failed")

	barcodeRegex = regexp.MustCompile(`^[0-9]{4,20}$`)
)

type searchResponse struct {
	Count    int              `json:"count"`
	Products []macros.Product `json:"products"`
}

type barcodeResponse struct {
	Status  int             `json:"status"`
	Product *macros.Product `json:"product"`
}

// Client talks to an OpenFoodFacts compatible API.
type Client struct {
	baseURL        string
	userAgent      string
	httpClient     *http.Client
	cache          *freecache.Cache
	metricsManager *metrics.Manager
}

func NewClient(
	baseURL string,
	cacheSizeMB int,
	httpClient *http.Client,
	metricsManager *metrics.Manager,
) *Client {
	megabyte := 1024 * 1024
	if cacheSizeMB <= 0 {
		cacheSizeMB = 10
	}
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		userAgent:      DefaultUserAgent,
		httpClient:     httpClient,
		cache:          freecache.NewCache(cacheSizeMB * megabyte),
		metricsManager: metricsManager,
	}
}

// Search returns the first page of products matching query.
func (c *Client) Search(ctx context.Context, query string) (_ []macros.Product, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "foodfacts.search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	span.SetAttributes(attribute.String("query", query))

	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", fmt.Sprintf("%d", searchPageSize))
	searchURL := fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode())

	cacheKey := "search::" + strings.ToLower(query)
	var products []macros.Product
	if c.fromCache(cacheKey, &products) {
		return products, nil
	}

	respBytes, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal search response: %w", ErrUpstream, err)
	}

	products = make([]macros.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, p.Compact())
	}
	c.toCache(cacheKey, products)

	span.SetAttributes(attribute.Int("products", len(products)))
	return products, nil
}

// LookupBarcode returns the product registered under the given barcode.
func (c *Client) LookupBarcode(ctx context.Context, code string) (_ *macros.Product, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "foodfacts.barcode")
	defer func() {
		if err != nil && !errors.Is(err, ErrProductNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	code = strings.TrimSpace(code)
	if !barcodeRegex.MatchString(code) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBarcode, code)
	}
	span.SetAttributes(attribute.String("barcode", code))

	cacheKey := "barcode::" + code
	var product macros.Product
	if c.fromCache(cacheKey, &product) {
		return &product, nil
	}

	barcodeURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(code))
	respBytes, err := c.get(ctx, barcodeURL)
	if err != nil {
		return nil, err
	}

	var resp barcodeResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal barcode response: %w", ErrUpstream, err)
	}
	if resp.Status != 1 || resp.Product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, code)
	}
	product = resp.Product.Compact()
	if product.Code == "" {
		product.Code = code
	}
	c.toCache(cacheKey, product)

	return &product, nil
}

// fromCache decodes the cached value under key into v, reporting a hit.
func (c *Client) fromCache(key string, v any) bool {
	cached, err := c.cache.Get([]byte(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(cached, v); err != nil {
		log.Errorf("foodfacts: decode cached [%s]: %s", key, err)
		return false
	}
	log.Tracef("foodfacts: found [%s] in cache", key)
	return true
}

// toCache stores the parsed products rather than the upstream body, which is
// often larger than the biggest entry freecache accepts.
func (c *Client) toCache(key string, v any) {
	valueBytes, err := json.Marshal(v)
	if err != nil {
		log.Errorf("foodfacts: encode [%s] for cache: %s", key, err)
		return
	}
	if err := c.cache.Set([]byte(key), valueBytes, cacheExpireSecs); err != nil {
		log.Errorf("foodfacts: failed to cache [%s]: %s", key, err)
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: http client do: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()
	c.observe(start, resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUpstream, err)
	}

	// the barcode endpoint answers unknown products with 404 and status 0 in the body
	if resp.StatusCode == http.StatusNotFound {
		return respBytes, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	return respBytes, nil
}

func (c *Client) observe(start time.Time, ok bool) {
	if c.metricsManager == nil {
		return
	}
	labels := prometheus.Labels{"upstream": upstreamLabel}
	c.metricsManager.HistogramUpstreamDuration.With(labels).Observe(time.Since(start).Seconds())
	if !ok {
		c.metricsManager.CounterUpstreamFailures.With(labels).Inc()
	}
}
