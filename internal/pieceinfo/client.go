// Package pieceinfo aggregates piece inventory, product master, and vendor
// data from the warehouse integration hub into one response.
package pieceinfo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/veerayerva/warehouse-returns/internal/resilience"
)

// ErrNotFound marks a 404 from the hub for the requested resource.
var ErrNotFound = eris.New("hub resource not found")

// Client fetches the three upstream data sets keyed off a piece number.
type Client interface {
	GetPieceInventory(ctx context.Context, pieceNumber string) (*PieceInventory, error)
	GetProductMaster(ctx context.Context, sku string) (*ProductMaster, error)
	GetVendorDetails(ctx context.Context, vendorCode string) (*VendorDetails, error)
}

// PieceInventory is the upstream inventory-location record.
type PieceInventory struct {
	PieceInventoryKey       string `json:"pieceInventoryKey"`
	SKU                     string `json:"sku"`
	Vendor                  string `json:"vendor"`
	WarehouseLocation       string `json:"warehouseLocation"`
	RackLocation            string `json:"rackLocation"`
	SerialNumber            string `json:"serialNumber"`
	Family                  string `json:"family"`
	PurchaseReferenceNumber string `json:"purchaseReferenceNumber"`
}

// ProductMaster is the upstream product record.
type ProductMaster struct {
	Description string `json:"description"`
	ModelNo     string `json:"modelNo"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Group       string `json:"group"`
}

// VendorDetails is the upstream vendor record. Policy flags arrive as loose
// JSON (bool, number, or string) so they are decoded permissively.
type VendorDetails struct {
	Name                 string       `json:"name"`
	AddressLine1         string       `json:"addressLine1"`
	AddressLine2         string       `json:"addressLine2"`
	City                 string       `json:"city"`
	State                string       `json:"state"`
	ZipCode              string       `json:"zipCode"`
	RepName              string       `json:"repName"`
	PrimaryRepEmail      string       `json:"primaryRepEmail"`
	SecondaryRepEmail    string       `json:"secondaryRepEmail"`
	ExecEmail            *string      `json:"execEmail"`
	SerialNumberRequired FlexibleBool `json:"serialNumberRequired"`
	VendorReturn         FlexibleBool `json:"vendorReturn"`
}

// ClientConfig holds connection settings for the integration hub.
type ClientConfig struct {
	BaseURL         string
	SubscriptionKey string
	Timeout         time.Duration
}

type httpClient struct {
	cfg   ClientConfig
	http  *http.Client
	retry resilience.RetryConfig
}

// ClientOption configures the hub client.
type ClientOption func(*httpClient)

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// NewClient creates an HTTP-backed integration-hub client.
func NewClient(cfg ClientConfig, opts ...ClientOption) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &httpClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetPieceInventory(ctx context.Context, pieceNumber string) (*PieceInventory, error) {
	var out PieceInventory
	path := "ihubservices/product/piece-inventory-location/" + url.PathEscape(pieceNumber)
	if err := c.getJSON(ctx, path, "piece inventory", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetProductMaster(ctx context.Context, sku string) (*ProductMaster, error) {
	var out ProductMaster
	path := "ihubservices/product/product-master/" + url.PathEscape(sku)
	if err := c.getJSON(ctx, path, "product master", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetVendorDetails(ctx context.Context, vendorCode string) (*VendorDetails, error) {
	var out VendorDetails
	path := "ihubservices/product/vendor/" + url.PathEscape(vendorCode)
	if err := c.getJSON(ctx, path, "vendor details", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) getJSON(ctx context.Context, path, operation string, out any) error {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("pieceinfo", operation)

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		fullURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return eris.Wrapf(err, "pieceinfo: create %s request", operation)
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.SubscriptionKey != "" {
			req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.NewTransientError(eris.Wrapf(err, "pieceinfo: %s call", operation), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resilience.NewTransientError(eris.Wrapf(err, "pieceinfo: read %s response", operation), 0)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return resilience.NewPermanentError(eris.Wrapf(ErrNotFound, "pieceinfo: %s", operation))
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return resilience.NewTransientError(
				eris.Errorf("pieceinfo: %s returned %d", operation, resp.StatusCode), resp.StatusCode)
		default:
			return resilience.NewPermanentError(
				eris.Errorf("pieceinfo: %s returned %d", operation, resp.StatusCode))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return resilience.NewPermanentError(eris.Wrapf(err, "pieceinfo: decode %s response", operation))
		}
		return nil
	})
}
