package hypersync

import (
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// Limiters hands out one token bucket per chain label so that concurrent page
// requests against the same indexer share its request budget. Chains that map
// to the same label share a bucket.
type Limiters struct {
	rps     float64
	burst   int
	byLabel *xsync.Map[string, *rate.Limiter]
}

// NewLimiters returns a registry; rps <= 0 disables limiting.
func NewLimiters(rps float64, burst int) *Limiters {
	if burst <= 0 {
		burst = 1
	}
	return &Limiters{rps: rps, burst: burst, byLabel: xsync.NewMap[string, *rate.Limiter]()}
}

// For returns the limiter of label (see Config.Label), or nil when limiting is
// disabled.
func (l *Limiters) For(label string) *rate.Limiter {
	if l == nil || l.rps <= 0 {
		return nil
	}
	if lim, ok := l.byLabel.Load(label); ok {
		return lim
	}
	lim, _ := l.byLabel.LoadOrStore(label, rate.NewLimiter(rate.Limit(l.rps), l.burst))
	return lim
}

