package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Webhook event types this system consumes.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventAccountUpdated           = "account.updated"
)

// Signature verification errors. All of them must map to a 400-class
// response before any reconciliation logic runs.
var (
	ErrMissingSignature = errors.New("signature header missing")
	ErrBadSignature     = errors.New("signature verification failed")
	ErrStaleTimestamp   = errors.New("signature timestamp outside tolerance")
)

// DefaultTolerance bounds how old a signed webhook may be before it is
// rejected as a potential replay.
const DefaultTolerance = 5 * time.Minute

// Event is a decoded webhook envelope. Object holds the raw event object;
// callers decode it with the typed helpers below.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	// Account is the connected account the event was delivered for; empty
	// for platform-level events.
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSessionEvent is the object payload of checkout.session.completed.
// Only the session id is trusted from the payload; financial state is
// re-fetched from the provider.
type CheckoutSessionEvent struct {
	ID string `json:"id"`
}

// AccountEvent is the object payload of account.updated.
type AccountEvent struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// VerifySignature checks the provider's signature header against the shared
// signing secret. The header format is "t=<unix>,v1=<hex hmac>" where the
// HMAC-SHA256 is computed over "<unix>.<payload>". Comparison is constant
// time and the timestamp must be within tolerance of now.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var ts int64
	var sigs [][]byte
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignature
			}
			ts = parsed
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrBadSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrBadSignature
}

// ParseEvent decodes a verified webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}
	if ev.Type == "" {
		return nil, errors.New("event type missing")
	}
	return &ev, nil
}

// CheckoutSession decodes the event object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSessionEvent, error) {
	var obj CheckoutSessionEvent
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, errors.Wrap(err, "decode checkout session object")
	}
	return &obj, nil
}

// AccountUpdated decodes the event object as a connected account.
func (e *Event) AccountUpdated() (*AccountEvent, error) {
	var obj AccountEvent
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return nil, errors.Wrap(err, "decode account object")
	}
	return &obj, nil
}
