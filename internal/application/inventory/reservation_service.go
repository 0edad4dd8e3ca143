package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReservationService handles reservation commands and queries.
type ReservationService struct {
	txScope    TransactionScope
	logger     *zap.Logger
	defaultTTL time.Duration
	clock      func() time.Time
}

// NewReservationService creates a new ReservationService. A zero defaultTTL means
// reservations created without an expiry never expire.
func NewReservationService(txScope TransactionScope, defaultTTL time.Duration, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		txScope:    txScope,
		logger:     logger,
		defaultTTL: defaultTTL,
		clock:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *ReservationService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// CreateReservation checks availability and raises the reserved quantity in one transaction.
func (s *ReservationService) CreateReservation(ctx context.Context, tenantID uuid.UUID, req CreateReservationRequest) (*ReservationResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	key := req.Key(tenantID)
	number := req.ReservationNumber
	if number == "" {
		number = inventory.GenerateReservationNumber(now)
	}
	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.defaultTTL > 0 {
		exp := now.Add(s.defaultTTL)
		expiresAt = &exp
	}

	reservation, err := inventory.NewStockReservation(key, number, req.Quantity,
		inventory.ReservationType(req.ReservationType),
		inventory.Reference{Type: req.ReferenceType, Number: req.ReferenceNumber, ID: req.ReferenceID},
		expiresAt, now)
	if err != nil {
		return nil, err
	}
	reservation.Notes = req.Notes
	if req.CreatedBy != nil {
		reservation.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.ReservationRepo().ExistsByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS", fmt.Sprintf("reservation number %s already exists", number))
		}

		ledger := NewLedger(repos)
		stock, err := ledger.GetOrCreate(ctx, key)
		if err != nil {
			return err
		}
		if stock.Available().LessThan(req.Quantity) {
			return insufficientStock(key, stock.Available(), req.Quantity)
		}
		if _, err := ledger.ApplyDelta(ctx, LedgerDelta{Key: key, Reserved: req.Quantity}); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Create(ctx, reservation); err != nil {
			return err
		}
		recordEvents(repos, reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_number", number),
		zap.String("key", key.String()),
		zap.String("quantity", req.Quantity.String()),
	)
	resp := ToReservationResponse(reservation)
	return &resp, nil
}

// FulfillReservation issues reserved stock. It lowers reserved and on-hand by the
// fulfilled amount and journals one ISSUE movement.
func (s *ReservationService) FulfillReservation(ctx context.Context, tenantID, reservationID uuid.UUID, req FulfillReservationRequest) (*ReservationResponse, error) {
	var resp ReservationResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		qty := r.Remaining()
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		if err := r.Fulfill(qty); err != nil {
			return err
		}

		ledger := NewLedger(repos)
		stock, err := ledger.ApplyDelta(ctx, LedgerDelta{Key: r.Key(), Quantity: qty.Neg(), Reserved: qty.Neg()})
		if err != nil {
			return err
		}
		m, err := inventory.NewStockMovement(r.Key(), qty.Neg(), inventory.MovementTypeIssue, inventory.MovementDetails{
			UnitCost:  stock.UnitCost,
			Reference: inventory.Reference{Type: inventory.ReferenceTypeReservation, Number: r.ReservationNumber, ID: r.ID},
			Reason:    "reservation fulfilled",
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}
		if _, err := NewJournal(repos, ledger).Record(ctx, m); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, r); err != nil {
			return err
		}
		recordEvents(repos, r)
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation fulfilled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_id", reservationID.String()),
		zap.String("status", resp.Status),
	)
	return &resp, nil
}

// CancelReservation releases the remainder. Cancelling a terminal reservation is a no-op.
func (s *ReservationService) CancelReservation(ctx context.Context, tenantID, reservationID uuid.UUID, reason string) (*ReservationResponse, error) {
	return s.release(ctx, tenantID, reservationID, "cancelled", func(r *inventory.StockReservation) (decimal.Decimal, bool, error) {
		released, changed := r.Cancel(reason)
		return released, changed, nil
	})
}

// ExpireReservation releases the remainder of a due reservation.
// Expiring a terminal reservation is a no-op.
func (s *ReservationService) ExpireReservation(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResponse, error) {
	now := s.clock().UTC()
	return s.release(ctx, tenantID, reservationID, "expired", func(r *inventory.StockReservation) (decimal.Decimal, bool, error) {
		return r.Expire(now)
	})
}

func (s *ReservationService) release(ctx context.Context, tenantID, reservationID uuid.UUID, verb string,
	transition func(*inventory.StockReservation) (decimal.Decimal, bool, error)) (*ReservationResponse, error) {
	var (
		resp    ReservationResponse
		changed bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		released, ok, err := transition(r)
		if err != nil {
			return err
		}
		resp = ToReservationResponse(r)
		if !ok {
			return nil
		}
		changed = true
		if released.IsPositive() {
			if _, err := NewLedger(repos).ApplyDelta(ctx, LedgerDelta{Key: r.Key(), Reserved: released.Neg()}); err != nil {
				return err
			}
		}
		if err := repos.ReservationRepo().Save(ctx, r); err != nil {
			return err
		}
		recordEvents(repos, r)
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Reservation "+verb,
			zap.String("tenant_id", tenantID.String()),
			zap.String("reservation_id", reservationID.String()),
		)
	}
	return &resp, nil
}

// ExtendReservation moves the expiry of an Active reservation.
func (s *ReservationService) ExtendReservation(ctx context.Context, tenantID, reservationID uuid.UUID, newExpiry time.Time) (*ReservationResponse, error) {
	now := s.clock().UTC()
	var resp ReservationResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if err := r.Extend(newExpiry, now); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, r); err != nil {
			return err
		}
		recordEvents(repos, r)
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetReservation returns a reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResponse, error) {
	var resp ReservationResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByID(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetReservationByNumber returns a reservation by its number.
func (s *ReservationService) GetReservationByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ReservationResponse, error) {
	var resp ReservationResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByNumber(ctx, tenantID, number)
		if err != nil {
			return err
		}
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListReservations returns reservations matching the filter.
func (s *ReservationService) ListReservations(ctx context.Context, tenantID uuid.UUID, f ReservationListFilter) (*shared.Paginated[ReservationResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "created_at"}.Normalize()
	rf := inventory.ReservationFilter{
		ProductID:       f.ProductID,
		WarehouseID:     f.WarehouseID,
		ReferenceNumber: f.ReferenceNumber,
	}
	for _, st := range f.Statuses {
		rf.Status = append(rf.Status, inventory.ReservationStatus(st))
	}

	var page shared.Paginated[ReservationResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.ReservationRepo().FindAll(ctx, tenantID, rf, filter)
		if err != nil {
			return err
		}
		items := make([]ReservationResponse, len(rows))
		for i := range rows {
			items[i] = ToReservationResponse(&rows[i])
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
