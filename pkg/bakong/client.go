// Package bakong talks to the Bakong merchant API. The QR payload itself is
// generated locally; this client only covers the secondary surfaces: the
// opportunistic deeplink call, transaction status lookups, and webhook
// signature verification.
package bakong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maiyoury/pkasla/pkg/config"
	pkgerrors "github.com/maiyoury/pkasla/pkg/errors"
	"github.com/maiyoury/pkasla/pkg/logger"
)

// Client is a thin HTTP wrapper over the merchant API. Like the card-network
// client it constructs fine without credentials and fails at call time.
type Client struct {
	httpClient *http.Client
	cfg        config.BakongConfig
	logg       *logger.Logger
}

// TransactionStatus is the provider's view of one transaction, raw status
// string included. Callers map the status through MapStatus.
type TransactionStatus struct {
	TransactionID  string `json:"transactionId"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Timestamp      string `json:"timestamp,omitempty"`
	PayerAccountID string `json:"payerAccountId,omitempty"`
	PayerName      string `json:"payerName,omitempty"`
}

// NewClient builds a client with a bounded request timeout.
func NewClient(cfg config.BakongConfig, logg *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		logg:       logg,
	}
}

// Configured reports whether the deployment carries merchant credentials.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.AccessToken != "" && c.cfg.MerchantAccountID != ""
}

// Ensure returns a provider-not-configured error when credentials are absent.
func (c *Client) Ensure() error {
	if !c.Configured() {
		return pkgerrors.New(pkgerrors.CodeProviderNotConfigured, "bakong is not configured")
	}
	return nil
}

// Config exposes the merchant identity used when building QR payloads.
func (c *Client) Config() config.BakongConfig {
	return c.cfg
}

// GenerateDeeplink asks the provider for a wallet deeplink wrapping an
// already-generated QR string. This is a best-effort call; the QR string is
// valid without it, so callers log failures and move on.
func (c *Client) GenerateDeeplink(ctx context.Context, qr string) (string, error) {
	if err := c.Ensure(); err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{"qr": qr})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal deeplink request")
	}

	var out struct {
		Data struct {
			ShortLink string `json:"shortLink"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/generate_deeplink_by_qr", body, &out); err != nil {
		return "", err
	}
	return out.Data.ShortLink, nil
}

// GetTransaction fetches the provider-side status of one transaction.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	if err := c.Ensure(); err != nil {
		return nil, err
	}

	var out TransactionStatus
	path := "/v1/transactions/" + transactionID
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		out.TransactionID = transactionID
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	url := strings.TrimRight(c.cfg.APIURL, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build bakong request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bakong request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bakong transaction not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("bakong responded %d: %s", resp.StatusCode, string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode bakong response")
	}
	return nil
}
