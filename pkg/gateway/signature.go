package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
)

// Signer computes and verifies keyed hashes over the gateway's canonical
// parameter strings. The field order inside each canonical string is fixed;
// changing it breaks verification against the gateway.
type Signer struct {
	secret []byte
}

// NewSigner builds a signer from the shared secret.
func NewSigner(secret string) Signer {
	return Signer{secret: []byte(secret)}
}

// Callback is the signed payload the gateway delivers on payment completion.
type Callback struct {
	PartnerCode   string          `json:"partner_code"`
	OrderCode     string          `json:"order_code"`
	RequestID     string          `json:"request_id"`
	TransactionID string          `json:"trans_id"`
	ResultCode    int             `json:"result_code"`
	Amount        decimal.Decimal `json:"amount"`
	Signature     string          `json:"signature"`
}

// SignIntent signs an outbound payment intent payload.
func (s Signer) SignIntent(p intentPayload) string {
	canonical := fmt.Sprintf("amount=%s&callbackUrl=%s&orderCode=%s&partnerCode=%s&requestId=%s",
		p.Amount, p.CallbackURL, p.OrderCode, p.PartnerCode, p.RequestID)
	return s.sign(canonical)
}

// SignCallback computes the expected signature for an inbound callback.
func (s Signer) SignCallback(cb Callback) string {
	canonical := fmt.Sprintf("amount=%s&orderCode=%s&partnerCode=%s&requestId=%s&resultCode=%d&transId=%s",
		cb.Amount.StringFixed(2), cb.OrderCode, cb.PartnerCode, cb.RequestID, cb.ResultCode, cb.TransactionID)
	return s.sign(canonical)
}

// VerifyCallback rejects a callback whose signature does not match. It must be
// called before any state change; a mismatch is a hard rejection.
func (s Signer) VerifyCallback(cb Callback) error {
	expected := s.SignCallback(cb)
	if !hmac.Equal([]byte(expected), []byte(cb.Signature)) {
		return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "callback signature mismatch")
	}
	return nil
}

func (s Signer) sign(canonical string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
