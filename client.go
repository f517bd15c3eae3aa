package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Fallback display messages per action, used when the server response carries
// no detail field. These match the API's user-facing locale.
const (
	msgLoadCustomers  = "Erro ao carregar clientes"
	msgLoadKPIs       = "Erro ao carregar KPIs"
	msgBankSync       = "Erro ao sincronizar Santander"
	msgExport         = "Erro ao exportar"
	msgCreateCustomer = "Erro ao criar cliente"
	msgUpdateCustomer = "Erro ao atualizar cliente"
	msgDeleteCustomer = "Erro ao excluir cliente"
)

// Client wraps the billing HTTP API. Each method maps one domain action to
// one request and normalizes every failure into a *FetchError. There is no
// retry, backoff, or timeout beyond what the caller's context imposes.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent as the X-API-KEY header on every request.
// An empty key sends no header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets the underlying *http.Client.
// Defaults to http.DefaultClient.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a Client for the API rooted at baseURL
// (e.g. "https://billing.internal/api").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCustomers fetches all customer records.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.getJSON(ctx, "/clientes", msgLoadCustomers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchKPIs fetches the dashboard aggregates.
func (c *Client) FetchKPIs(ctx context.Context) (KPISnapshot, error) {
	var out KPISnapshot
	if err := c.getJSON(ctx, "/clientes/dashboard", msgLoadKPIs, &out); err != nil {
		return KPISnapshot{}, err
	}
	return out, nil
}

// TriggerBankSync asks the server to reconcile the bank statement against
// open invoices and reports how much it matched.
func (c *Client) TriggerBankSync(ctx context.Context) (SyncReport, error) {
	var out SyncReport
	if err := c.do(ctx, http.MethodPost, "/bank/sync", nil, msgBankSync, &out); err != nil {
		return SyncReport{}, err
	}
	return out, nil
}

// ExportAccounting fetches the accounting report as opaque bytes. The
// content type is server-defined (CSV today).
func (c *Client) ExportAccounting(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/clientes/export/contabilidade", nil, msgExport)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Message: msgExport}
	}
	return data, nil
}

// CreateCustomer creates a customer record and returns the server's copy.
func (c *Client) CreateCustomer(ctx context.Context, draft CustomerDraft) (Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/clientes", draft, msgCreateCustomer, &out); err != nil {
		return Customer{}, err
	}
	return out, nil
}

// UpdateCustomer applies a partial update; only the patch's non-nil fields
// change on the server. Returns the updated record.
func (c *Client) UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) (Customer, error) {
	var out Customer
	path := "/clientes/" + id
	if err := c.do(ctx, http.MethodPatch, path, patch, msgUpdateCustomer, &out); err != nil {
		return Customer{}, err
	}
	return out, nil
}

// DeleteCustomer deletes a customer record.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	resp, err := c.send(ctx, http.MethodDelete, "/clientes/"+id, nil, msgDeleteCustomer)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// getJSON issues a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path, fallback string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, fallback, out)
}

// do issues a request with an optional JSON body and decodes the response.
func (c *Client) do(ctx context.Context, method, path string, body any, fallback string, out any) error {
	resp, err := c.send(ctx, method, path, body, fallback)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Message: fallback, Status: resp.StatusCode}
	}
	return nil
}

// send issues the request and returns the response if it succeeded.
// Non-2xx responses are drained for a best-effort {detail} message and
// converted to a *FetchError; the caller never sees the failed response.
func (c *Client) send(ctx context.Context, method, path string, body any, fallback string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &FetchError{Message: fallback}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &FetchError{Message: fallback}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Message: fallback}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := decodeDetail(resp.Body)
		resp.Body.Close()
		return nil, fetchErr(resp.StatusCode, detail, fallback)
	}
	return resp, nil
}

// decodeDetail best-effort parses an error body as {"detail": "..."}.
// Any parse failure yields an empty detail.
func decodeDetail(r io.Reader) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Detail
}
