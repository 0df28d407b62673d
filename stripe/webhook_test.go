package stripe

import (
	"testing"
	"time"
)

const testSecret = "whsec_test_secret"

func TestConstructEventValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"invoice.paid","data":{"object":{}}}`)
	now := time.Now()
	header := SignPayload(payload, testSecret, now)

	event, err := constructEventAt(payload, header, testSecret, now, DefaultTolerance)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if event.Id != "evt_123" {
		t.Fatalf("expected evt_123, got %s", event.Id)
	}
	if event.Type != "invoice.paid" {
		t.Fatalf("expected invoice.paid, got %s", event.Type)
	}
}

func TestConstructEventMissingHeader(t *testing.T) {
	_, err := constructEventAt([]byte(`{}`), "", testSecret, time.Now(), DefaultTolerance)
	if err != ErrNoSignature {
		t.Fatalf("expected ErrNoSignature, got %v", err)
	}
}

func TestConstructEventWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"invoice.paid"}`)
	now := time.Now()
	header := SignPayload(payload, "whsec_other", now)

	if _, err := constructEventAt(payload, header, testSecret, now, DefaultTolerance); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_123","type":"invoice.paid"}`)
	now := time.Now()
	header := SignPayload(payload, testSecret, now)

	tampered := []byte(`{"id":"evt_999","type":"invoice.paid"}`)
	if _, err := constructEventAt(tampered, header, testSecret, now, DefaultTolerance); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_123"}`)
	signedAt := time.Now().Add(-10 * time.Minute)
	header := SignPayload(payload, testSecret, signedAt)

	if _, err := constructEventAt(payload, header, testSecret, time.Now(), DefaultTolerance); err != ErrTimestampTooOld {
		t.Fatalf("expected ErrTimestampTooOld, got %v", err)
	}
}

func TestConstructEventGarbageHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_123"}`)
	for _, header := range []string{
		"t=notanumber,v1=abc",
		"v1=deadbeef",
		"t=123",
		"nonsense",
	} {
		if _, err := constructEventAt(payload, header, testSecret, time.Now(), 0); err == nil {
			t.Fatalf("expected error for header %q", header)
		}
	}
}

func TestConstructEventMultipleSignatures(t *testing.T) {
	// Stripe sends multiple v1 entries during secret rotation; any valid
	// one must pass.
	payload := []byte(`{"id":"evt_123","type":"invoice.paid"}`)
	now := time.Now()
	good := SignPayload(payload, testSecret, now)
	combined := good + ",v1=0000000000000000000000000000000000000000000000000000000000000000"
	if _, err := constructEventAt(payload, combined, testSecret, now, DefaultTolerance); err != nil {
		t.Fatalf("expected one matching signature to pass, got %v", err)
	}
}
