// Package gateway isolates all third-party payment-provider HTTP
// interaction. State changes happen at the provider only; retry policy
// belongs to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"digital-store/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrAuthFailed indicates the client-credential exchange was rejected.
	ErrAuthFailed = errors.New("paypal authentication failed")
	// ErrOrderCreateFailed indicates the provider did not create the order.
	ErrOrderCreateFailed = errors.New("paypal order creation failed")
	// ErrCaptureFailed indicates the provider did not capture the payment.
	ErrCaptureFailed = errors.New("paypal capture failed")
)

// PayPalClient talks to the PayPal REST API.
type PayPalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewPayPalClient creates a PayPal client. The timeout bounds every
// provider call so a slow provider cannot hold a request forever.
func NewPayPalClient(baseURL, clientID, clientSecret string, timeout time.Duration) *PayPalClient {
	return &PayPalClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       util.GetLogger(),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Authenticate obtains a short-lived bearer token via the
// client-credentials grant.
func (c *PayPalClient) Authenticate(ctx context.Context) (string, error) {
	ctx, span := util.StartSpan(ctx, "PayPalClient.Authenticate")
	defer span.End()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues("authenticate", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	util.GatewayRequestDuration.WithLabelValues("authenticate").Observe(time.Since(start).Seconds())
	util.GatewayRequestsTotal.WithLabelValues("authenticate", fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("PayPal auth failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}
	return token.AccessToken, nil
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type purchaseUnit struct {
	Amount      amount `json:"amount"`
	Description string `json:"description"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder creates a provider-side payment order and returns the
// provider-assigned order id.
func (c *PayPalClient) CreateOrder(ctx context.Context, accessToken string, total float64, currency, returnURL, cancelURL string) (string, error) {
	ctx, span := util.StartSpan(ctx, "PayPalClient.CreateOrder")
	defer span.End()

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{
				CurrencyCode: currency,
				Value:        fmt.Sprintf("%.2f", total),
			},
			Description: "Digital Store purchase",
		}},
		ApplicationContext: applicationContext{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues("create_order", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}
	defer resp.Body.Close()

	util.GatewayRequestDuration.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
	util.GatewayRequestsTotal.WithLabelValues("create_order", fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("PayPal order creation failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return "", fmt.Errorf("%w: status %d", ErrOrderCreateFailed, resp.StatusCode)
	}

	var result createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: empty order id", ErrOrderCreateFailed)
	}
	return result.ID, nil
}

// CaptureOrder captures an approved provider order.
func (c *PayPalClient) CaptureOrder(ctx context.Context, accessToken, providerOrderID string) error {
	ctx, span := util.StartSpan(ctx, "PayPalClient.CaptureOrder")
	defer span.End()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, providerOrderID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues("capture_order", "error").Inc()
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	defer resp.Body.Close()

	util.GatewayRequestDuration.WithLabelValues("capture_order").Observe(time.Since(start).Seconds())
	util.GatewayRequestsTotal.WithLabelValues("capture_order", fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("PayPal capture failed",
			zap.String("paypal_order_id", providerOrderID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("%w: status %d", ErrCaptureFailed, resp.StatusCode)
	}
	return nil
}
