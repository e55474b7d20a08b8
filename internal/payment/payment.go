// Package payment captures booking deposits with an external provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// ErrCaptureFailed is returned when the provider declines or cannot
// complete a capture.
var ErrCaptureFailed = errors.New("payment capture failed")

// Capture is the provider's record of a captured order.
type Capture struct {
	ProviderID string
	Status     string
}

// Provider captures an order the customer approved in the browser.
type Provider interface {
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)
}

// PayPal talks to the PayPal Orders v2 REST API. The embedded client
// fetches and refreshes client-credential tokens on its own.
type PayPal struct {
	baseURL string
	client  *http.Client
}

// NewPayPal returns a provider for the given REST credentials. baseURL is
// the sandbox or live API root.
func NewPayPal(ctx context.Context, clientID, secret, baseURL string) *PayPal {
	baseURL = strings.TrimRight(baseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     baseURL + "/v1/oauth2/token",
	}
	client := cc.Client(ctx)
	client.Timeout = 15 * time.Second
	return &PayPal{baseURL: baseURL, client: client}
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder captures an approved order. Anything other than a
// COMPLETED order wraps ErrCaptureFailed.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	if strings.TrimSpace(orderID) == "" {
		return Capture{}, fmt.Errorf("%w: empty order id", ErrCaptureFailed)
	}
	endpoint := p.baseURL + "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return Capture{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return Capture{}, fmt.Errorf("paypal capture: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Capture{}, fmt.Errorf("paypal capture: %w", err)
	}
	if res.StatusCode/100 != 2 {
		return Capture{}, fmt.Errorf("%w: status %d", ErrCaptureFailed, res.StatusCode)
	}

	var out captureResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Capture{}, fmt.Errorf("paypal capture: decode: %w", err)
	}
	if out.Status != "COMPLETED" {
		return Capture{}, fmt.Errorf("%w: order status %s", ErrCaptureFailed, out.Status)
	}
	id := out.ID
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		id = out.PurchaseUnits[0].Payments.Captures[0].ID
	}
	return Capture{ProviderID: id, Status: out.Status}, nil
}
