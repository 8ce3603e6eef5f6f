// Package asaas is a thin client for the Asaas billing API (v3). It covers
// exactly what checkout needs: customer lookup/creation and charge creation.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Auth is a flat access_token header, not a bearer token.
const accessTokenHeader = "access_token"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

type ChargeParams struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	Description       string  `json:"description"`
	ExternalReference string  `json:"externalReference"`
}

type Charge struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	Value             float64  `json:"value"`
	NetValue          *float64 `json:"netValue"`
	InvoiceURL        string   `json:"invoiceUrl"`
	BillingType       string   `json:"billingType"`
	ExternalReference string   `json:"externalReference"`
}

// FindCustomerByCpfCnpj returns the first gateway customer matching the
// document, or nil when none exists.
func (c *Client) FindCustomerByCpfCnpj(ctx context.Context, cpfCnpj string) (*Customer, error) {
	var list customerList
	endpoint := "/customers?cpfCnpj=" + url.QueryEscape(cpfCnpj)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

func (c *Client) CreateCustomer(ctx context.Context, name, email, cpfCnpj string) (*Customer, error) {
	body := map[string]interface{}{
		"name":                 name,
		"email":                email,
		"cpfCnpj":              cpfCnpj,
		"notificationDisabled": true,
	}
	var cus Customer
	if err := c.do(ctx, http.MethodPost, "/customers", body, &cus); err != nil {
		return nil, err
	}
	if cus.ID == "" {
		return nil, fmt.Errorf("asaas: customer created without id")
	}
	return &cus, nil
}

func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/payments", params, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" || charge.InvoiceURL == "" {
		return nil, fmt.Errorf("asaas: charge response missing id or invoice url")
	}
	return &charge, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("asaas: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("asaas: build request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("asaas: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("asaas: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("asaas: %s %s: status %d: %s", method, endpoint, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("asaas: decode response: %w", err)
		}
	}
	return nil
}
