package compare

import (
	"fmt"
	"time"

	"paperlink/internal/config"
)

// New builds the configured comparer.
func New(cfg config.Config) (Comparer, error) {
	switch cfg.CompareProvider {
	case "mock", "":
		return NewMockComparer(), nil
	case "http":
		return NewHTTPComparer(cfg.CompareBaseURL, time.Duration(cfg.CompareTimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown compare provider: %q", cfg.CompareProvider)
	}
}
