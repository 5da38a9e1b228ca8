package store

import (
	"context"
	"testing"
)

// Open's ParseConfig step rejects a malformed DSN before ever attempting a
// connection, so this much is exercisable without a live Postgres instance.
// The connect/ping path and every repo's query behavior require a real
// server; see DESIGN.md for why no fake pgxpool.Pool backs those here.
func TestOpenRejectsMalformedDSN(t *testing.T) {
	_, err := Open(context.Background(), "not a valid dsn \x00")
	if err == nil {
		t.Fatal("expected a malformed DSN to fail at ParseConfig, before any connection attempt")
	}
}
