package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultSweepBatchSize bounds how many due items one sweep loads.
const DefaultSweepBatchSize = 100

// ExpirySweepResult contains statistics about one expiry sweep
type ExpirySweepResult struct {
	Processed   int       `json:"processed"`
	Expired     int       `json:"expired"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ReservationExpiryService expires due reservations across tenants.
type ReservationExpiryService struct {
	txScope      TransactionScope
	reservations *ReservationService
	logger       *zap.Logger
	clock        func() time.Time
}

// NewReservationExpiryService creates a new ReservationExpiryService
func NewReservationExpiryService(txScope TransactionScope, reservations *ReservationService, logger *zap.Logger) *ReservationExpiryService {
	return &ReservationExpiryService{
		txScope:      txScope,
		reservations: reservations,
		logger:       logger,
		clock:        time.Now,
	}
}

// SetClock replaces the time source of the sweep and of the expire command it runs.
func (s *ReservationExpiryService) SetClock(clock func() time.Time) {
	s.clock = clock
	s.reservations.SetClock(clock)
}

// ExpireDue finds Active reservations whose expiry has passed and expires each one in its
// own transaction. Failures are logged and counted; the sweep continues.
func (s *ReservationExpiryService) ExpireDue(ctx context.Context, limit int) (*ExpirySweepResult, error) {
	start := time.Now()
	now := s.clock().UTC()
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}
	result := &ExpirySweepResult{ProcessedAt: now}

	var due []inventory.StockReservation
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, err := repos.ReservationRepo().FindDue(ctx, now, limit)
		due = rows
		return err
	})
	if err != nil {
		s.logger.Error("Failed to find due reservations", zap.Error(err))
		return nil, err
	}
	if len(due) == 0 {
		s.logger.Debug("No due reservations found")
		return result, nil
	}

	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		result.Processed++
		resp, err := s.reservations.ExpireReservation(ctx, r.TenantID, r.ID)
		if err != nil {
			result.Failed++
			level := s.logger.Error
			if errors.Is(err, shared.ErrConflict) {
				level = s.logger.Warn
			}
			level("Failed to expire reservation",
				zap.String("tenant_id", r.TenantID.String()),
				zap.String("reservation_number", r.ReservationNumber),
				zap.Error(err),
			)
			continue
		}
		if resp.Status == string(inventory.ReservationStatusExpired) {
			result.Expired++
		}
	}

	s.logger.Info("Completed reservation expiry sweep",
		zap.Int("processed", result.Processed),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		since(start),
	)
	return result, nil
}
