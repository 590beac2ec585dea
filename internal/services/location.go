package services

import (
	"context"
	"time"

	"alert-agent/internal/platform"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

// DefaultCaptureBudget bounds the fresh high-accuracy location attempt
const DefaultCaptureBudget = 8 * time.Second

// capturePosition runs the capture ladder: a bounded high-accuracy
// attempt, then the cached last-known fix, then nil. It never returns an
// error; a record with null coordinates beats a record that never ships.
func capturePosition(ctx context.Context, provider platform.LocationProvider, budget time.Duration) *platform.Position {
	if budget <= 0 {
		budget = DefaultCaptureBudget
	}

	captureCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	pos, err := provider.Capture(captureCtx)
	if err == nil && pos != nil {
		return pos
	}
	logger.Debug("High-accuracy location capture failed", zap.Error(err))

	pos, err = provider.LastKnown()
	if err == nil && pos != nil {
		return pos
	}
	logger.Warn("No location available, proceeding without coordinates", zap.Error(err))

	return nil
}
