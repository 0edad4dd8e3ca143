package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeSerialNumber is the aggregate type of serialized units.
const AggregateTypeSerialNumber = "SerialNumber"

// SerialStatus is the lifecycle state of a serialized unit.
type SerialStatus string

const (
	SerialStatusReceived  SerialStatus = "RECEIVED"
	SerialStatusAvailable SerialStatus = "AVAILABLE"
	SerialStatusReserved  SerialStatus = "RESERVED"
	SerialStatusSold      SerialStatus = "SOLD"
	SerialStatusDefective SerialStatus = "DEFECTIVE"
	SerialStatusScrapped  SerialStatus = "SCRAPPED"
)

// IsTerminal reports whether the unit has left stock for good.
func (s SerialStatus) IsTerminal() bool {
	return s == SerialStatusSold || s == SerialStatusScrapped
}

var serialTransitions = map[SerialStatus][]SerialStatus{
	SerialStatusAvailable: {SerialStatusReceived, SerialStatusReserved},
	SerialStatusReserved:  {SerialStatusAvailable},
	SerialStatusSold:      {SerialStatusAvailable, SerialStatusReserved},
	SerialStatusDefective: {SerialStatusReceived, SerialStatusAvailable, SerialStatusReserved},
	SerialStatusScrapped:  {SerialStatusReceived, SerialStatusAvailable, SerialStatusReserved, SerialStatusDefective},
}

// CanTransitionTo reports whether the move from s to target is legal.
func (s SerialStatus) CanTransitionTo(target SerialStatus) bool {
	for _, from := range serialTransitions[target] {
		if from == s {
			return true
		}
	}
	return false
}

// SerialNumber tracks one serialized unit from receipt to sale or scrap.
type SerialNumber struct {
	shared.TenantAggregateRoot
	ProductID      uuid.UUID
	Serial         string
	Status         SerialStatus
	LotNumber      string
	WarehouseID    *uuid.UUID
	LocationID     *uuid.UUID
	ReservationRef string
	CustomerID     *uuid.UUID
	SalesOrderID   *uuid.UUID
	SoldAt         *time.Time
	WarrantyMonths int
	WarrantyStart  *time.Time
	WarrantyEnd    *time.Time
	DefectReason   string
	ScrapReason    string
	ReceivedAt     time.Time
}

// SerialSpec describes a unit being received.
type SerialSpec struct {
	ProductID      uuid.UUID
	Serial         string
	LotNumber      string
	WarehouseID    *uuid.UUID
	LocationID     *uuid.UUID
	WarrantyMonths int
}

// NewSerialNumber registers a Received unit.
func NewSerialNumber(tenantID uuid.UUID, spec SerialSpec) (*SerialNumber, error) {
	serial := strings.TrimSpace(spec.Serial)
	if serial == "" {
		return nil, shared.NewValidationError("INVALID_SERIAL", "serial number is required")
	}
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	}
	if spec.WarrantyMonths < 0 {
		return nil, shared.NewValidationError("INVALID_WARRANTY", "warranty months cannot be negative")
	}
	sn := &SerialNumber{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           spec.ProductID,
		Serial:              serial,
		Status:              SerialStatusReceived,
		LotNumber:           spec.LotNumber,
		WarehouseID:         spec.WarehouseID,
		LocationID:          spec.LocationID,
		WarrantyMonths:      spec.WarrantyMonths,
		ReceivedAt:          time.Now().UTC(),
	}
	sn.AddDomainEvent(NewSerialStatusChangedEvent(sn, ""))
	return sn, nil
}

func (s *SerialNumber) moveTo(target SerialStatus, action string) error {
	if !s.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("serial number", string(s.Status), action)
	}
	from := s.Status
	s.Status = target
	s.IncrementVersion()
	s.AddDomainEvent(NewSerialStatusChangedEvent(s, from))
	return nil
}

// MakeAvailable completes put-away or inspection of a Received unit.
func (s *SerialNumber) MakeAvailable() error {
	if s.Status != SerialStatusReceived {
		return shared.NewInvalidTransitionError("serial number", string(s.Status), "make available")
	}
	return s.moveTo(SerialStatusAvailable, "make available")
}

// Reserve holds an Available unit against a demand reference.
func (s *SerialNumber) Reserve(reference string) error {
	if err := s.moveTo(SerialStatusReserved, "reserve"); err != nil {
		return err
	}
	s.ReservationRef = reference
	return nil
}

// Release returns a Reserved unit to Available.
func (s *SerialNumber) Release() error {
	if s.Status != SerialStatusReserved {
		return shared.NewInvalidTransitionError("serial number", string(s.Status), "release")
	}
	if err := s.moveTo(SerialStatusAvailable, "release"); err != nil {
		return err
	}
	s.ReservationRef = ""
	return nil
}

// Sell ships the unit to a customer and starts its warranty.
func (s *SerialNumber) Sell(customerID, salesOrderID uuid.UUID, soldAt time.Time) error {
	if customerID == uuid.Nil {
		return shared.NewValidationError("INVALID_CUSTOMER", "customer ID is required")
	}
	if err := s.moveTo(SerialStatusSold, "sell"); err != nil {
		return err
	}
	at := soldAt.UTC()
	s.CustomerID = &customerID
	if salesOrderID != uuid.Nil {
		s.SalesOrderID = &salesOrderID
	}
	s.SoldAt = &at
	start := at
	end := at.AddDate(0, s.WarrantyMonths, 0)
	s.WarrantyStart = &start
	s.WarrantyEnd = &end
	return nil
}

// MarkDefective takes a non-terminal unit out of circulation pending disposition.
func (s *SerialNumber) MarkDefective(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "defect reason is required")
	}
	if err := s.moveTo(SerialStatusDefective, "mark defective"); err != nil {
		return err
	}
	s.DefectReason = reason
	return nil
}

// Scrap disposes of a unit for good.
func (s *SerialNumber) Scrap(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "scrap reason is required")
	}
	if err := s.moveTo(SerialStatusScrapped, "scrap"); err != nil {
		return err
	}
	s.ScrapReason = reason
	return nil
}

// IsUnderWarranty reports whether a sold unit's warranty covers at.
func (s *SerialNumber) IsUnderWarranty(at time.Time) bool {
	if s.WarrantyStart == nil || s.WarrantyEnd == nil {
		return false
	}
	return !at.Before(*s.WarrantyStart) && at.Before(*s.WarrantyEnd)
}
