package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"go.uber.org/zap"
)

// ServicesConfig carries the settings the stock services read at construction.
type ServicesConfig struct {
	ReservationTTL     time.Duration
	SuggestionValidity time.Duration
	// Directory resolves category and supplier scoped reorder rules. Without it those
	// rules fail Validation.
	Directory inventory.ProductDirectory
}

// Services is every stock command and query service bound to one transaction scope,
// plus the expiry sweeps built on them.
type Services struct {
	Stock             *StockService
	Reservations      *ReservationService
	Transfers         *TransferService
	Counts            *StockCountService
	Adjustments       *AdjustmentService
	Traceability      *TraceabilityService
	Reorder           *ReorderService
	ReservationExpiry *ReservationExpiryService
	SuggestionExpiry  *SuggestionExpiryService
}

func NewServices(txScope TransactionScope, cfg ServicesConfig, logger *zap.Logger) *Services {
	reservations := NewReservationService(txScope, cfg.ReservationTTL, logger)
	reorder := NewReorderService(txScope, cfg.Directory, logger)
	if cfg.SuggestionValidity > 0 {
		reorder.SetDefaultValidity(cfg.SuggestionValidity)
	}
	return &Services{
		Stock:             NewStockService(txScope, logger),
		Reservations:      reservations,
		Transfers:         NewTransferService(txScope, logger),
		Counts:            NewStockCountService(txScope, logger),
		Adjustments:       NewAdjustmentService(txScope, logger),
		Traceability:      NewTraceabilityService(txScope, logger),
		Reorder:           reorder,
		ReservationExpiry: NewReservationExpiryService(txScope, reservations, logger),
		SuggestionExpiry:  NewSuggestionExpiryService(txScope, reorder, logger),
	}
}
