package cache

import (
	"strings"
	"testing"
)

func TestKey_OrderIndependent(t *testing.T) {
	a := Key("alpha_vantage", "quote", map[string]any{"symbol": "AAPL", "interval": "1d"})
	b := Key("alpha_vantage", "quote", map[string]any{"interval": "1d", "symbol": "AAPL"})

	if a != b {
		t.Errorf("Keys differ for identical params: %s vs %s", a, b)
	}
}

func TestKey_Shape(t *testing.T) {
	k := Key("alpha_vantage", "quote", map[string]any{"symbol": "AAPL"})

	if !strings.HasPrefix(k, "alpha_vantage:quote:") {
		t.Errorf("Key missing readable prefix: %s", k)
	}

	digest := strings.TrimPrefix(k, "alpha_vantage:quote:")
	if len(digest) != hashLen {
		t.Errorf("Expected %d-char digest, got %d (%s)", hashLen, len(digest), digest)
	}
}

func TestKey_DistinctParams(t *testing.T) {
	a := Key("alpha_vantage", "quote", map[string]any{"symbol": "AAPL"})
	b := Key("alpha_vantage", "quote", map[string]any{"symbol": "MSFT"})

	if a == b {
		t.Error("Different params produced the same key")
	}
}
