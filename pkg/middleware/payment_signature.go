package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
)

const PaymentSignatureHeader = "Paymongo-Signature"

var (
	ErrMissingSignature   = errors.New("missing signature header")
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature does not match")
)

// PaymentSignature is the parsed form of "t=<unix ts>,te=<test sig>,li=<live sig>".
type PaymentSignature struct {
	Timestamp string
	Test      string
	Live      string
}

func ParsePaymentSignature(header string) (PaymentSignature, error) {
	if strings.TrimSpace(header) == "" {
		return PaymentSignature{}, ErrMissingSignature
	}

	var sig PaymentSignature
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			sig.Timestamp = value
		case "te":
			sig.Test = value
		case "li":
			sig.Live = value
		}
	}

	if sig.Timestamp == "" || (sig.Test == "" && sig.Live == "") {
		return PaymentSignature{}, ErrMalformedSignature
	}
	return sig, nil
}

// VerifyPaymentSignature checks an HMAC-SHA256 of "{t}.{body}" against the
// test and live candidates. Either one matching is enough.
func VerifyPaymentSignature(secret, header string, body []byte) error {
	sig, err := ParsePaymentSignature(header)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sig.Timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := []byte(hex.EncodeToString(mac.Sum(nil)))

	for _, candidate := range []string{sig.Test, sig.Live} {
		if candidate != "" && hmac.Equal(expected, []byte(strings.ToLower(candidate))) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// PaymentSignatureVerification guards the payment webhook. With an empty
// secret it lets everything through; startup logs that mode.
func PaymentSignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readAndRestoreBody(r)
			if err == nil {
				err = VerifyPaymentSignature(secret, r.Header.Get(PaymentSignatureHeader), body)
			}
			if err != nil {
				log.Warn("Payment webhook verification failed",
					"security_event", true,
					"request_id", RequestID(r.Context()),
					"reason", err.Error(),
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				reject(w, apperrors.Unauthorized("Invalid webhook signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
