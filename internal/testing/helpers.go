package testing

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// TestContext returns a context with a reasonable timeout for tests. It
// carries a logger writing to t.Log.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return logr.NewContext(ctx, TestLogger(t))
}

// TestLogger returns a logger writing to t.Log at verbosity 1.
func TestLogger(t *testing.T) logr.Logger {
	return funcr.New(func(prefix, args string) {
		t.Helper()
		if prefix != "" {
			t.Logf("%s: %s", prefix, args)
			return
		}
		t.Log(args)
	}, funcr.Options{Verbosity: 1})
}
