package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

var (
	errBaseURLRequired     = errors.New("gateway base url is required")
	errPartnerCodeRequired = errors.New("gateway partner code is required")
	errSecretRequired      = errors.New("gateway secret is required")
	errLoggerRequired      = errors.New("gateway logger is required")
)

// Client talks to the payment gateway with centralized signing, logging, and
// error mapping. The outbound intent call and the inbound callback are fully
// decoupled; nothing here holds per-order state.
type Client struct {
	baseURL     string
	partnerCode string
	callbackURL string
	signer      Signer
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	partnerCode := strings.TrimSpace(cfg.PartnerCode)
	if partnerCode == "" {
		return nil, errPartnerCodeRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	c := &Client{
		baseURL:     baseURL,
		partnerCode: partnerCode,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		signer:      NewSigner(secret),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logg,
	}

	logg.Info(ctx, "payment gateway client initialized")
	return c, nil
}

// Signer returns the signer bound to the shared secret, for callback checks.
func (c *Client) Signer() Signer {
	return c.signer
}

// PartnerCode reports the configured partner identifier.
func (c *Client) PartnerCode() string {
	if c == nil {
		return ""
	}
	return c.partnerCode
}

// IntentRequest carries the fields for an outbound payment intent.
type IntentRequest struct {
	OrderCode string
	Amount    decimal.Decimal
	RequestID string
	Note      string
}

// IntentResponse is the gateway's answer to a payment intent call.
type IntentResponse struct {
	PayURL     string `json:"pay_url"`
	RequestID  string `json:"request_id"`
	ResultCode int    `json:"result_code"`
	Message    string `json:"message"`
}

type intentPayload struct {
	PartnerCode string `json:"partner_code"`
	OrderCode   string `json:"order_code"`
	Amount      string `json:"amount"`
	RequestID   string `json:"request_id"`
	CallbackURL string `json:"callback_url"`
	Note        string `json:"note,omitempty"`
	Signature   string `json:"signature"`
}

// CreatePaymentIntent asks the gateway for a redirect URL for the given order.
func (c *Client) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	if strings.TrimSpace(req.OrderCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	if req.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	payload := intentPayload{
		PartnerCode: c.partnerCode,
		OrderCode:   req.OrderCode,
		Amount:      req.Amount.StringFixed(2),
		RequestID:   requestID,
		CallbackURL: c.callbackURL,
		Note:        req.Note,
	}
	payload.Signature = c.signer.SignIntent(payload)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode intent payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/intents", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build intent request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"order_code": req.OrderCode,
		"request_id": requestID,
	})
	c.logger.Info(logCtx, "gateway.create_intent")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	var intent IntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	if intent.ResultCode != 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway rejected intent: %s", intent.Message))
	}
	return &intent, nil
}
