package tips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
)

// Guarded bounds a generator with a timeout and replaces any failure with
// static advice. It never returns an error.
type Guarded struct {
	next    Generator
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewGuarded wraps next
func NewGuarded(next Generator, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Guarded{next: next, timeout: timeout, logger: logger, metrics: m}
}

type tipResult struct {
	tip Tip
	err error
}

func (g *Guarded) GenerateTip(ctx context.Context, req Request) (Tip, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan tipResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- tipResult{err: fmt.Errorf("tip generator panicked: %v", r)}
			}
		}()
		tip, err := g.next.GenerateTip(ctx, req)
		done <- tipResult{tip: tip, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.tip, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) {
			return g.fallback(req, FallbackDelayed, "timeout", res.err), nil
		}
		return g.fallback(req, FallbackUnavailable, "error", res.err), nil
	case <-ctx.Done():
		return g.fallback(req, FallbackDelayed, "timeout", ctx.Err()), nil
	}
}

func (g *Guarded) fallback(req Request, text, reason string, err error) Tip {
	g.logger.Warn("Tip generation failed, using fallback",
		zap.String("region", req.Region),
		zap.String("reason", reason),
		zap.Error(err))
	g.metrics.TipFallback(reason)

	return Tip{
		Tip:          text,
		RiskLevel:    aqi.RiskLevel(aqi.CategoryUnknown),
		Personalized: req.Profile != nil,
	}
}
