package mainseries

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/logger"
)

// Rollover back-adjusts the continuous series when the main contract changes
type Rollover struct {
	bars   contracts.DailyBarStore
	series contracts.MainSeriesStore
	logger *logger.Logger
}

// NewRollover creates a new rollover adjuster
func NewRollover(bars contracts.DailyBarStore, series contracts.MainSeriesStore, log *logger.Logger) *Rollover {
	return &Rollover{bars: bars, series: series, logger: log}
}

// Basis returns newBar's close minus the old contract's close on the same
// day. Without an old bar that day the basis is zero.
func (r *Rollover) Basis(ctx context.Context, oldCode string, newBar *contracts.DailyBar) (decimal.Decimal, error) {
	oldClose := newBar.Close
	if oldCode != "" {
		old, err := r.bars.GetBar(ctx, newBar.Exchange, oldCode, newBar.Day)
		switch {
		case err == nil:
			oldClose = old.Close
		case !errors.Is(err, contracts.ErrNotFound):
			return decimal.Zero, fmt.Errorf("load old contract bar: %w", err)
		}
	}
	return newBar.Close.Sub(oldClose), nil
}

// Apply writes the switch day's row from newBar, records the basis on it and
// shifts every row up to and including that day by it.
// ⭐ SSOT: 연속선물 백어저스트는 여기서만
func (r *Rollover) Apply(ctx context.Context, oldCode string, newBar *contracts.DailyBar) (decimal.Decimal, error) {
	basis, err := r.Basis(ctx, oldCode, newBar)
	if err != nil {
		return decimal.Zero, err
	}

	product := newBar.ProductCode()
	if err := r.series.ShiftRange(ctx, contracts.MainBarFrom(newBar), basis); err != nil {
		return decimal.Zero, fmt.Errorf("shift %s %s series: %w", newBar.Exchange, product, err)
	}

	r.logger.WithExchange(string(newBar.Exchange)).WithDay(newBar.Day).WithFields(map[string]interface{}{
		"product": product,
		"from":    oldCode,
		"to":      newBar.Code,
		"basis":   basis.String(),
	}).Info("Rolled main contract")

	return basis, nil
}
