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

// TraceabilityService handles lot and serial number lifecycles.
type TraceabilityService struct {
	txScope TransactionScope
	logger  *zap.Logger
	clock   func() time.Time
}

// NewTraceabilityService creates a new TraceabilityService
func NewTraceabilityService(txScope TransactionScope, logger *zap.Logger) *TraceabilityService {
	return &TraceabilityService{txScope: txScope, logger: logger, clock: time.Now}
}

// SetClock replaces the time source used for expiry and warranty evaluation.
func (s *TraceabilityService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// ===================== Lots =====================

// CreateLot registers a Pending lot. Lot numbers are unique per product.
func (s *TraceabilityService) CreateLot(ctx context.Context, tenantID uuid.UUID, req CreateLotRequest) (*LotResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	lot, err := inventory.NewLotBatch(tenantID, req.spec())
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		lot.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.LotRepo().ExistsByNumber(ctx, tenantID, lot.ProductID, lot.LotNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS",
				fmt.Sprintf("lot %s already exists for product %s", lot.LotNumber, lot.ProductID))
		}
		if err := repos.LotRepo().Create(ctx, lot); err != nil {
			return err
		}
		recordEvents(repos, lot)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lot created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", lot.ProductID.String()),
		zap.String("lot_number", lot.LotNumber),
		zap.String("quantity", lot.InitialQuantity.String()),
	)
	resp := ToLotResponse(lot, s.clock())
	return &resp, nil
}

// ApproveLot releases a Pending lot for use.
func (s *TraceabilityService) ApproveLot(ctx context.Context, tenantID, lotID, approvedBy uuid.UUID) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.Approve(approvedBy)
	})
}

// QuarantineLot blocks a lot from reservation and consumption.
func (s *TraceabilityService) QuarantineLot(ctx context.Context, tenantID, lotID uuid.UUID, reason string) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.Quarantine(reason)
	})
}

// ReleaseLotQuarantine returns a Quarantined lot to Approved.
func (s *TraceabilityService) ReleaseLotQuarantine(ctx context.Context, tenantID, lotID uuid.UUID) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.ReleaseQuarantine()
	})
}

// ConsumeLot draws down the lot's current quantity.
func (s *TraceabilityService) ConsumeLot(ctx context.Context, tenantID, lotID uuid.UUID, quantity decimal.Decimal) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.Consume(quantity)
	})
}

// ReserveLot holds quantity of an Approved, unexpired lot.
func (s *TraceabilityService) ReserveLot(ctx context.Context, tenantID, lotID uuid.UUID, quantity decimal.Decimal) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.Reserve(quantity, s.clock())
	})
}

// ReleaseLot returns reserved lot quantity.
func (s *TraceabilityService) ReleaseLot(ctx context.Context, tenantID, lotID uuid.UUID, quantity decimal.Decimal) (*LotResponse, error) {
	return s.mutateLot(ctx, tenantID, lotID, func(l *inventory.LotBatch) error {
		return l.Release(quantity)
	})
}

// GetLot returns a lot by ID.
func (s *TraceabilityService) GetLot(ctx context.Context, tenantID, lotID uuid.UUID) (*LotResponse, error) {
	var resp LotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		l, err := repos.LotRepo().FindByID(ctx, tenantID, lotID)
		if err != nil {
			return err
		}
		resp = ToLotResponse(l, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetLotByNumber returns the lot of a product by its number.
func (s *TraceabilityService) GetLotByNumber(ctx context.Context, tenantID, productID uuid.UUID, lotNumber string) (*LotResponse, error) {
	var resp LotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		l, err := repos.LotRepo().FindByNumber(ctx, tenantID, productID, lotNumber)
		if err != nil {
			return err
		}
		resp = ToLotResponse(l, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListExpiringLots returns lots that expire within the next days days.
func (s *TraceabilityService) ListExpiringLots(ctx context.Context, tenantID uuid.UUID, days int) ([]LotResponse, error) {
	if days <= 0 {
		return nil, shared.NewValidationError("INVALID_DAYS", "days must be positive")
	}
	now := s.clock().UTC()
	return s.listLots(ctx, now, func(repos TransactionalRepositories) ([]inventory.LotBatch, error) {
		return repos.LotRepo().FindExpiring(ctx, tenantID, now, now.AddDate(0, 0, days))
	})
}

// ListExpiredLots returns non-consumed lots past their expiry.
func (s *TraceabilityService) ListExpiredLots(ctx context.Context, tenantID uuid.UUID) ([]LotResponse, error) {
	now := s.clock().UTC()
	return s.listLots(ctx, now, func(repos TransactionalRepositories) ([]inventory.LotBatch, error) {
		return repos.LotRepo().FindExpired(ctx, tenantID, now)
	})
}

func (s *TraceabilityService) listLots(ctx context.Context, now time.Time,
	find func(repos TransactionalRepositories) ([]inventory.LotBatch, error)) ([]LotResponse, error) {
	var out []LotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		lots, err := find(repos)
		if err != nil {
			return err
		}
		out = make([]LotResponse, len(lots))
		for i := range lots {
			out[i] = ToLotResponse(&lots[i], now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TraceabilityService) mutateLot(ctx context.Context, tenantID, lotID uuid.UUID, fn func(l *inventory.LotBatch) error) (*LotResponse, error) {
	var (
		resp LotResponse
		from inventory.LotStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		l, err := repos.LotRepo().FindByID(ctx, tenantID, lotID)
		if err != nil {
			return err
		}
		from = l.Status
		if err := fn(l); err != nil {
			return err
		}
		if err := repos.LotRepo().Save(ctx, l); err != nil {
			return err
		}
		recordEvents(repos, l)
		resp = ToLotResponse(l, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if string(from) != resp.Status {
		s.logger.Info("Lot status changed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("lot_number", resp.LotNumber),
			zap.String("from", string(from)),
			zap.String("to", resp.Status),
		)
	}
	return &resp, nil
}

// ===================== Serial numbers =====================

// ReceiveSerial registers a Received unit. Serials are unique per product.
func (s *TraceabilityService) ReceiveSerial(ctx context.Context, tenantID uuid.UUID, req ReceiveSerialRequest) (*SerialResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	sn, err := inventory.NewSerialNumber(tenantID, inventory.SerialSpec{
		ProductID:      req.ProductID,
		Serial:         req.Serial,
		LotNumber:      req.LotNumber,
		WarehouseID:    req.WarehouseID,
		LocationID:     req.LocationID,
		WarrantyMonths: req.WarrantyMonths,
	})
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		sn.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.SerialRepo().ExistsBySerial(ctx, tenantID, sn.ProductID, sn.Serial)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("ALREADY_EXISTS",
				fmt.Sprintf("serial %s already exists for product %s", sn.Serial, sn.ProductID))
		}
		if err := repos.SerialRepo().Create(ctx, sn); err != nil {
			return err
		}
		recordEvents(repos, sn)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Serial received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", sn.ProductID.String()),
		zap.String("serial", sn.Serial),
	)
	resp := ToSerialResponse(sn, s.clock())
	return &resp, nil
}

// MakeSerialAvailable completes put-away of a Received unit.
func (s *TraceabilityService) MakeSerialAvailable(ctx context.Context, tenantID, serialID uuid.UUID) (*SerialResponse, error) {
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.MakeAvailable()
	})
}

// ReserveSerial holds an Available unit against a demand reference.
func (s *TraceabilityService) ReserveSerial(ctx context.Context, tenantID, serialID uuid.UUID, reference string) (*SerialResponse, error) {
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.Reserve(reference)
	})
}

// ReleaseSerial returns a Reserved unit to Available.
func (s *TraceabilityService) ReleaseSerial(ctx context.Context, tenantID, serialID uuid.UUID) (*SerialResponse, error) {
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.Release()
	})
}

// SellSerial records the sale and starts the warranty. SoldAt defaults to now.
func (s *TraceabilityService) SellSerial(ctx context.Context, tenantID, serialID uuid.UUID, req SellSerialRequest) (*SerialResponse, error) {
	if err := validateCommand(req); err != nil {
		return nil, err
	}
	soldAt := s.clock()
	if req.SoldAt != nil {
		soldAt = *req.SoldAt
	}
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.Sell(req.CustomerID, req.SalesOrderID, soldAt)
	})
}

// MarkSerialDefective takes a unit out of circulation.
func (s *TraceabilityService) MarkSerialDefective(ctx context.Context, tenantID, serialID uuid.UUID, reason string) (*SerialResponse, error) {
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.MarkDefective(reason)
	})
}

// ScrapSerial disposes of a unit.
func (s *TraceabilityService) ScrapSerial(ctx context.Context, tenantID, serialID uuid.UUID, reason string) (*SerialResponse, error) {
	return s.mutateSerial(ctx, tenantID, serialID, func(sn *inventory.SerialNumber) error {
		return sn.Scrap(reason)
	})
}

// GetSerial returns a unit by ID.
func (s *TraceabilityService) GetSerial(ctx context.Context, tenantID, serialID uuid.UUID) (*SerialResponse, error) {
	var resp SerialResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sn, err := repos.SerialRepo().FindByID(ctx, tenantID, serialID)
		if err != nil {
			return err
		}
		resp = ToSerialResponse(sn, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSerialByNumber returns the unit of a product by its serial.
func (s *TraceabilityService) GetSerialByNumber(ctx context.Context, tenantID, productID uuid.UUID, serial string) (*SerialResponse, error) {
	var resp SerialResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sn, err := repos.SerialRepo().FindBySerial(ctx, tenantID, productID, serial)
		if err != nil {
			return err
		}
		resp = ToSerialResponse(sn, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSerials returns the units of a product filtered by status.
func (s *TraceabilityService) ListSerials(ctx context.Context, tenantID, productID uuid.UUID, f SerialListFilter) (*shared.Paginated[SerialResponse], error) {
	if err := validateCommand(f); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: "received_at"}.Normalize()
	statuses := make([]inventory.SerialStatus, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, inventory.SerialStatus(st))
	}
	now := s.clock()

	var page shared.Paginated[SerialResponse]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.SerialRepo().FindByProduct(ctx, tenantID, productID, statuses, filter)
		if err != nil {
			return err
		}
		items := make([]SerialResponse, len(rows))
		for i := range rows {
			items[i] = ToSerialResponse(&rows[i], now)
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *TraceabilityService) mutateSerial(ctx context.Context, tenantID, serialID uuid.UUID, fn func(sn *inventory.SerialNumber) error) (*SerialResponse, error) {
	var (
		resp SerialResponse
		from inventory.SerialStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sn, err := repos.SerialRepo().FindByID(ctx, tenantID, serialID)
		if err != nil {
			return err
		}
		from = sn.Status
		if err := fn(sn); err != nil {
			return err
		}
		if err := repos.SerialRepo().Save(ctx, sn); err != nil {
			return err
		}
		recordEvents(repos, sn)
		resp = ToSerialResponse(sn, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Serial status changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("serial", resp.Serial),
		zap.String("from", string(from)),
		zap.String("to", resp.Status),
	)
	return &resp, nil
}
