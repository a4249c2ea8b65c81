package patternlib

import (
	"context"
	"testing"

	"github.com/tiko09/ledctrl/internal/pattern/expr"
)

func TestConfigCollectionDefaultsToPatterns(t *testing.T) {
	cfg := Config{URI: "mongodb://localhost", Database: "ledctrl"}
	if got := cfg.collection(); got != "patterns" {
		t.Fatalf("collection() = %q, want %q", got, "patterns")
	}
}

func TestConfigCollectionRespectsOverride(t *testing.T) {
	cfg := Config{Collection: "custom_patterns"}
	if got := cfg.collection(); got != "custom_patterns" {
		t.Fatalf("collection() = %q, want %q", got, "custom_patterns")
	}
}

func TestStoreRejectsUncompilablePatternBeforeTouchingMongo(t *testing.T) {
	// Store validates via expr.Compile first and returns before ever
	// dereferencing l.client, so this is safe to exercise against a
	// Library with no live connection.
	lib := &Library{cfg: Config{Database: "ledctrl"}}

	_, err := lib.Store(context.Background(), "broken", "sin(", "hsv", "tester")
	if err == nil {
		t.Fatal("expected an error for an uncompilable pattern, got nil")
	}
}

func TestStoreAcceptsCompilableSourceValidation(t *testing.T) {
	// A compilable expression passes validation; the subsequent Mongo
	// write is exercised only against a live deployment, not here.
	_, errs, _ := expr.Compile("sin(t + x) * scale")
	if len(errs) != 0 {
		t.Fatalf("expected no compile errors, got %v", errs)
	}
}
