package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// frame mirrors the outbound wire envelope for assertions.
type frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mustFrame waits for the next frame queued on the client and decodes it.
func mustFrame(t *testing.T, ch <-chan []byte) frame {
	t.Helper()

	select {
	case raw := <-ch:
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("expected frame not received")
		return frame{}
	}
}

// noFrame asserts that nothing is queued for the client.
func noFrame(t *testing.T, ch <-chan []byte) {
	t.Helper()

	select {
	case raw := <-ch:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}
