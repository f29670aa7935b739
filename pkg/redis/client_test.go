package redis

import "testing"

func TestIdempotencyKey(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("shipments", "abc-123"); got != "tb:idempotency:shipments:abc-123" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.IdempotencyKey("", "abc-123"); got != "tb:idempotency:abc-123" {
		t.Fatalf("empty scope should be skipped, got %s", got)
	}
}
