package adapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paymentDomain "github.com/Arcadia-Gaming-Lounge/service-booking/internal/domain/payment"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	hostedPayPath    = "/pg/v1/pay"
	hostedStatusPath = "/pg/v1/status"
)

// HostedConfig holds the merchant credentials of the hosted checkout provider.
type HostedConfig struct {
	BaseURL    string
	MerchantID string
	SaltKey    string
	SaltIndex  string
}

// HostedGateway talks to a PhonePe-style hosted checkout API where every
// request is signed with a salted SHA-256 X-VERIFY header.
type HostedGateway struct {
	cfg    HostedConfig
	client *http.Client
	logger *zap.Logger
}

// NewHostedGateway creates a hosted checkout gateway. A nil client uses a
// client with a 15 second timeout.
func NewHostedGateway(cfg HostedConfig, client *http.Client, logger *zap.Logger) *HostedGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HostedGateway{cfg: cfg, client: client, logger: logger}
}

func (g *HostedGateway) Name() string { return "hosted" }

// checksum returns sha256(payload + path + saltKey) + "###" + saltIndex.
func (g *HostedGateway) checksum(payload, path string) string {
	sum := sha256.Sum256([]byte(payload + path + g.cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + g.cfg.SaltIndex
}

// CreateIntent registers the payment and returns the provider's pay page.
func (g *HostedGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	payload, err := json.Marshal(map[string]any{
		"merchantId":            g.cfg.MerchantID,
		"merchantTransactionId": req.MerchantTxnID,
		"merchantUserId":        "CUST" + req.PayerPhone,
		"amount":                req.AmountMinor,
		"redirectUrl":           req.RedirectURL + "?merchant_txn_id=" + req.MerchantTxnID,
		"redirectMode":          "REDIRECT",
		"mobileNumber":          req.PayerPhone,
		"paymentInstrument":     map[string]string{"type": "PAY_PAGE"},
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to encode payment request", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "failed to encode payment request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+hostedPayPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("failed to build payment request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", g.checksum(encoded, hostedPayPath))

	raw, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "success").Bool() {
		return nil, apperror.NewPaymentVerificationError(
			fmt.Sprintf("provider rejected payment request: %s", gjson.GetBytes(raw, "message").String()), nil)
	}
	redirect := gjson.GetBytes(raw, "data.instrumentResponse.redirectInfo.url").String()
	if redirect == "" {
		return nil, apperror.NewPaymentVerificationError("provider response has no redirect url", nil)
	}

	g.logger.Info("hosted checkout created",
		zap.String("merchant_txn_id", req.MerchantTxnID),
		zap.Int64("amount_minor", req.AmountMinor),
	)
	return &Intent{OrderID: req.MerchantTxnID, RedirectURL: redirect}, nil
}

// GetStatus asks the provider for the authoritative payment state.
func (g *HostedGateway) GetStatus(ctx context.Context, q StatusQuery) (*paymentDomain.StatusResult, error) {
	path := fmt.Sprintf("%s/%s/%s", hostedStatusPath, g.cfg.MerchantID, q.MerchantTxnID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("failed to build status request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", g.checksum("", path))
	httpReq.Header.Set("X-MERCHANT-ID", g.cfg.MerchantID)

	raw, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}
	return parseHostedStatus(raw)
}

func (g *HostedGateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("payment provider unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.NewPaymentVerificationError("failed to read provider response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("payment provider returned %d", resp.StatusCode)
		if gjson.ValidBytes(raw) {
			if code := gjson.GetBytes(raw, "code").String(); code != "" {
				msg += ": " + code
			}
			if m := gjson.GetBytes(raw, "message").String(); m != "" {
				msg += " " + m
			}
		}
		return nil, apperror.NewPaymentVerificationError(msg, nil)
	}
	if !gjson.ValidBytes(raw) {
		return nil, apperror.NewPaymentVerificationError("provider response is not valid JSON", nil)
	}
	return raw, nil
}

// hostedFailureCodes are the status codes that settle a payment as failed.
var hostedFailureCodes = map[string]bool{
	"PAYMENT_ERROR":     true,
	"PAYMENT_DECLINED":  true,
	"PAYMENT_CANCELLED": true,
	"TIMED_OUT":         true,
}

// parseHostedStatus maps the provider's status codes onto ProviderState.
// Codes that are neither success, pending nor a known terminal failure
// (auth errors, throttling, unknown transactions) cannot be trusted as an
// outcome and come back as verification errors.
func parseHostedStatus(raw []byte) (*paymentDomain.StatusResult, error) {
	code := gjson.GetBytes(raw, "code")
	if !code.Exists() {
		return nil, apperror.NewPaymentVerificationError("provider status response has no code", nil)
	}
	res := &paymentDomain.StatusResult{
		OrderID: gjson.GetBytes(raw, "data.transactionId").String(),
		Message: gjson.GetBytes(raw, "message").String(),
		Raw:     raw,
	}
	switch code.String() {
	case "PAYMENT_SUCCESS":
		res.State = paymentDomain.ProviderCompleted
		if res.OrderID == "" {
			res.OrderID = gjson.GetBytes(raw, "data.merchantTransactionId").String()
		}
	case "PAYMENT_PENDING":
		res.State = paymentDomain.ProviderPending
	default:
		if !hostedFailureCodes[code.String()] {
			return nil, apperror.NewPaymentVerificationError(
				fmt.Sprintf("provider could not report status: %s %s", code.String(), res.Message), nil).
				WithDetail("provider_code", code.String())
		}
		res.State = paymentDomain.ProviderFailed
	}
	return res, nil
}
