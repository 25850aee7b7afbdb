// Package gateway wraps the remote PIX payment processor. When no
// credential is resolvable the client runs in simulation mode and
// fabricates deterministic payable artifacts without external calls.
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

	"finance-service/internal/model"
	"finance-service/internal/settings"
	"finance-service/pkg/config"
	"finance-service/prometheus"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrPaymentCreationFailed covers every live-mode creation failure; the
// caller may let the user retry manually, there is no retry here.
var ErrPaymentCreationFailed = errors.New("payment creation failed")

// MockPrefix marks external ids fabricated in simulation mode.
const MockPrefix = "mock_"

const simulatedQRCode = "00020126580014br.gov.bcb.pix0136simulated-payment-request-artifact5204000053039865802BR6304ABCD"
const simulatedQRImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Client talks to the payment processor.
type Client struct {
	baseURL    string
	envToken   string
	httpClient *http.Client
}

// NewClient builds a processor client. The credential itself is resolved
// per call so a token configured through settings takes effect without a
// restart.
func NewClient(cfg *config.PaymentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		envToken:   cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// token resolves the processor credential: encrypted system setting first,
// environment fallback second. Empty means simulation mode.
func (c *Client) token() string {
	if tok, ok := settings.Get(model.SettingAccessToken); ok && tok != "" {
		return tok
	}
	return c.envToken
}

// Simulated reports whether the client currently has no credential.
func (c *Client) Simulated() bool {
	return c.token() == ""
}

// PixRequest describes a payment intent to create.
type PixRequest struct {
	Amount        decimal.Decimal
	Description   string
	PayerEmail    string
	PayerName     string
	PayerDocument string
}

// PixIntent is the created payable artifact.
type PixIntent struct {
	ExternalID   string
	Status       string
	QRCode       string
	QRCodeBase64 string
}

type pixPaymentRequest struct {
	TransactionAmount float64        `json:"transaction_amount"`
	Description       string         `json:"description"`
	PaymentMethodID   string         `json:"payment_method_id"`
	Payer             pixPaymentUser `json:"payer"`
}

type pixPaymentUser struct {
	Email          string            `json:"email"`
	FirstName      string            `json:"first_name,omitempty"`
	Identification pixIdentification `json:"identification"`
}

type pixIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type pixPaymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreatePixPayment creates a PIX payment request with the processor, or
// fabricates one locally in simulation mode.
func (c *Client) CreatePixPayment(ctx context.Context, req *PixRequest) (*PixIntent, error) {
	if c.Simulated() {
		return &PixIntent{
			ExternalID:   MockPrefix + uuid.New().String(),
			Status:       model.PaymentPending,
			QRCode:       simulatedQRCode,
			QRCodeBase64: simulatedQRImage,
		}, nil
	}

	defer prometheus.TrackProcessorCall("create")(time.Now())

	amount, _ := req.Amount.Round(2).Float64()
	body := pixPaymentRequest{
		TransactionAmount: amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer: pixPaymentUser{
			Email:     req.PayerEmail,
			FirstName: req.PayerName,
			Identification: pixIdentification{
				Type:   documentType(req.PayerDocument),
				Number: req.PayerDocument,
			},
		},
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/v1/payments", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreationFailed, err)
	}

	var resp pixPaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid processor response: %v", ErrPaymentCreationFailed, err)
	}

	return &PixIntent{
		ExternalID:   resp.ID.String(),
		Status:       resp.Status,
		QRCode:       resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: resp.PointOfInteraction.TransactionData.QRCodeBase64,
	}, nil
}

// GetPaymentStatus fetches the current status of a payment from the
// processor. Simulated payments stay pending until settled locally.
func (c *Client) GetPaymentStatus(ctx context.Context, externalID string) (string, error) {
	if strings.HasPrefix(externalID, MockPrefix) || c.Simulated() {
		return model.PaymentPending, nil
	}

	defer prometheus.TrackProcessorCall("status")(time.Now())

	respBody, err := c.doRequest(ctx, http.MethodGet, "/v1/payments/"+externalID, nil)
	if err != nil {
		return "", err
	}

	var resp pixPaymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid processor response: %w", err)
	}
	if resp.Status == "" {
		return "", errors.New("processor response missing status")
	}

	return resp.Status, nil
}

// doRequest executes an authenticated request against the processor.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token())
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("X-Idempotency-Key", uuid.New().String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// documentType distinguishes the two Brazilian tax id formats by length.
func documentType(document string) string {
	if len(document) > 11 {
		return "CNPJ"
	}
	return "CPF"
}
