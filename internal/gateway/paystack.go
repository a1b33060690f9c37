package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "vestra/internal/errors"
)

// PaystackClient implements Gateway against a Paystack-compatible API.
type PaystackClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	secretKey  string
	currency   string
}

// NewPaystackClient creates a payout gateway client. baseURL may be empty,
// in which case the public Paystack endpoint is used.
func NewPaystackClient(httpClient *http.Client, baseURL, secretKey string) *PaystackClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   "NGN",
	}
}

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *PaystackClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return apperrors.Wrap(apperrors.ErrGatewayFailure, err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrGatewayFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.Wrap(apperrors.ErrGatewayFailure, err)
	}
	if !env.Status {
		return apperrors.Wrap(apperrors.ErrGatewayFailure,
			fmt.Errorf("gateway declined %s %s: %s", method, path, env.Message))
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.Wrap(apperrors.ErrGatewayFailure, err)
		}
	}
	return nil
}

// ResolveBankCode lists the gateway's banks and matches bankName against
// them, exact match first and then substring either way.
func (c *PaystackClient) ResolveBankCode(ctx context.Context, bankName string) (string, error) {
	var banks []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := c.do(ctx, http.MethodGet, "/bank?country=nigeria", nil, &banks); err != nil {
		return "", err
	}

	target := strings.ToLower(strings.TrimSpace(bankName))
	for _, b := range banks {
		if strings.ToLower(b.Name) == target {
			return b.Code, nil
		}
	}
	for _, b := range banks {
		name := strings.ToLower(b.Name)
		if strings.Contains(name, target) || strings.Contains(target, name) {
			return b.Code, nil
		}
	}
	return "", apperrors.ErrBankNotResolved
}

// CreateRecipient registers a NUBAN transfer recipient.
func (c *PaystackClient) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	payload := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       c.currency,
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", payload, &data); err != nil {
		return "", err
	}
	if data.RecipientCode == "" {
		return "", apperrors.Wrap(apperrors.ErrGatewayFailure,
			fmt.Errorf("gateway returned no recipient code"))
	}
	return data.RecipientCode, nil
}

// InitiateTransfer starts a transfer in minor currency units and returns the
// gateway transfer reference.
func (c *PaystackClient) InitiateTransfer(ctx context.Context, amountMinor int64, recipientCode, reason, reference string) (string, error) {
	payload := map[string]any{
		"source":    "balance",
		"amount":    amountMinor,
		"recipient": recipientCode,
		"reason":    reason,
		"reference": reference,
	}
	var data struct {
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", payload, &data); err != nil {
		return "", err
	}
	if data.TransferCode != "" {
		return data.TransferCode, nil
	}
	if data.Reference != "" {
		return data.Reference, nil
	}
	return reference, nil
}
