package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a context for callback paths that have no caller context,
// such as broker message handlers. CONTEXT_TEST disables the deadline.
func NewContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
