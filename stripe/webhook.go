package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Tolerance on the signed timestamp; older deliveries are rejected to
// block replays.
const DefaultTolerance = 5 * time.Minute

var (
	ErrNoSignature      = errors.New("missing Stripe-Signature header")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrTimestampTooOld  = errors.New("webhook timestamp outside tolerance")
)

// ConstructEvent verifies the Stripe-Signature header against the raw
// payload and parses the event. Header format: "t=<unix>,v1=<hex hmac>",
// signed payload is "<t>.<body>" with HMAC-SHA256 over the secret.
func ConstructEvent(payload []byte, sigHeader string, secret string) (*Event, error) {
	return constructEventAt(payload, sigHeader, secret, time.Now(), DefaultTolerance)
}

func constructEventAt(payload []byte, sigHeader string, secret string, now time.Time, tolerance time.Duration) (*Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return nil, ErrNoSignature
	}

	var timestamp int64 = -1
	var signatures [][]byte

	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return nil, ErrInvalidSignature
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return nil, ErrTimestampTooOld
		}
	}

	expected := computeSignature(timestamp, payload, secret)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func computeSignature(timestamp int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignPayload builds a valid Stripe-Signature header. Used by tests and
// the local webhook replay tool.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	sig := computeSignature(ts, payload, secret)
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(sig)
}
