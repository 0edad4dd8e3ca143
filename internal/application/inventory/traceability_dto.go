package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLotRequest registers a Pending lot.
type CreateLotRequest struct {
	ProductID         uuid.UUID       `json:"product_id" validate:"required"`
	LotNumber         string          `json:"lot_number" validate:"required,max=100"`
	Quantity          decimal.Decimal `json:"quantity"`
	SupplierID        *uuid.UUID      `json:"supplier_id"`
	SupplierLotNumber string          `json:"supplier_lot_number" validate:"max=100"`
	ManufacturedDate  *time.Time      `json:"manufactured_date"`
	ReceivedDate      *time.Time      `json:"received_date"`
	ExpiryDate        *time.Time      `json:"expiry_date"`
	Notes             string          `json:"notes" validate:"max=500"`
	CreatedBy         *uuid.UUID      `json:"created_by"`
}

func (r CreateLotRequest) spec() inventory.LotSpec {
	return inventory.LotSpec{
		ProductID:         r.ProductID,
		LotNumber:         r.LotNumber,
		Quantity:          r.Quantity,
		SupplierID:        r.SupplierID,
		SupplierLotNumber: r.SupplierLotNumber,
		ManufacturedDate:  r.ManufacturedDate,
		ReceivedDate:      r.ReceivedDate,
		ExpiryDate:        r.ExpiryDate,
		Notes:             r.Notes,
	}
}

// LotResponse represents a lot in responses. Status is the effective status at read time.
type LotResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	LotNumber         string          `json:"lot_number"`
	Status            string          `json:"status"`
	InitialQuantity   decimal.Decimal `json:"initial_quantity"`
	CurrentQuantity   decimal.Decimal `json:"current_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	SupplierID        *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierLotNumber string          `json:"supplier_lot_number,omitempty"`
	ManufacturedDate  *time.Time      `json:"manufactured_date,omitempty"`
	ReceivedDate      time.Time       `json:"received_date"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	DaysUntilExpiry   int             `json:"days_until_expiry"`
	QuarantineReason  string          `json:"quarantine_reason,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy        *uuid.UUID      `json:"approved_by,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Version           int             `json:"version"`
}

// ToLotResponse converts a domain LotBatch to a response evaluated at now
func ToLotResponse(l *inventory.LotBatch, now time.Time) LotResponse {
	return LotResponse{
		ID:                l.ID,
		TenantID:          l.TenantID,
		ProductID:         l.ProductID,
		LotNumber:         l.LotNumber,
		Status:            string(l.EffectiveStatus(now)),
		InitialQuantity:   l.InitialQuantity,
		CurrentQuantity:   l.CurrentQuantity,
		ReservedQuantity:  l.ReservedQuantity,
		AvailableQuantity: l.AvailableQuantity(),
		SupplierID:        l.SupplierID,
		SupplierLotNumber: l.SupplierLotNumber,
		ManufacturedDate:  l.ManufacturedDate,
		ReceivedDate:      l.ReceivedDate,
		ExpiryDate:        l.ExpiryDate,
		DaysUntilExpiry:   l.DaysUntilExpiry(now),
		QuarantineReason:  l.QuarantineReason,
		ApprovedAt:        l.ApprovedAt,
		ApprovedBy:        l.ApprovedBy,
		Notes:             l.Notes,
		CreatedAt:         l.CreatedAt,
		Version:           l.Version,
	}
}

// ReceiveSerialRequest registers a Received unit.
type ReceiveSerialRequest struct {
	ProductID      uuid.UUID  `json:"product_id" validate:"required"`
	Serial         string     `json:"serial" validate:"required,max=100"`
	LotNumber      string     `json:"lot_number" validate:"max=100"`
	WarehouseID    *uuid.UUID `json:"warehouse_id"`
	LocationID     *uuid.UUID `json:"location_id"`
	WarrantyMonths int        `json:"warranty_months" validate:"gte=0,lte=600"`
	CreatedBy      *uuid.UUID `json:"created_by"`
}

// SellSerialRequest records the sale of a unit.
type SellSerialRequest struct {
	CustomerID   uuid.UUID  `json:"customer_id" validate:"required"`
	SalesOrderID uuid.UUID  `json:"sales_order_id"`
	SoldAt       *time.Time `json:"sold_at"`
}

// SerialResponse represents a serialized unit in responses
type SerialResponse struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	Serial         string     `json:"serial"`
	Status         string     `json:"status"`
	LotNumber      string     `json:"lot_number,omitempty"`
	WarehouseID    *uuid.UUID `json:"warehouse_id,omitempty"`
	LocationID     *uuid.UUID `json:"location_id,omitempty"`
	ReservationRef string     `json:"reservation_ref,omitempty"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	SalesOrderID   *uuid.UUID `json:"sales_order_id,omitempty"`
	SoldAt         *time.Time `json:"sold_at,omitempty"`
	WarrantyMonths int        `json:"warranty_months"`
	WarrantyStart  *time.Time `json:"warranty_start,omitempty"`
	WarrantyEnd    *time.Time `json:"warranty_end,omitempty"`
	UnderWarranty  bool       `json:"under_warranty"`
	DefectReason   string     `json:"defect_reason,omitempty"`
	ScrapReason    string     `json:"scrap_reason,omitempty"`
	ReceivedAt     time.Time  `json:"received_at"`
	Version        int        `json:"version"`
}

// ToSerialResponse converts a domain SerialNumber to a response evaluated at now
func ToSerialResponse(s *inventory.SerialNumber, now time.Time) SerialResponse {
	return SerialResponse{
		ID:             s.ID,
		TenantID:       s.TenantID,
		ProductID:      s.ProductID,
		Serial:         s.Serial,
		Status:         string(s.Status),
		LotNumber:      s.LotNumber,
		WarehouseID:    s.WarehouseID,
		LocationID:     s.LocationID,
		ReservationRef: s.ReservationRef,
		CustomerID:     s.CustomerID,
		SalesOrderID:   s.SalesOrderID,
		SoldAt:         s.SoldAt,
		WarrantyMonths: s.WarrantyMonths,
		WarrantyStart:  s.WarrantyStart,
		WarrantyEnd:    s.WarrantyEnd,
		UnderWarranty:  s.IsUnderWarranty(now),
		DefectReason:   s.DefectReason,
		ScrapReason:    s.ScrapReason,
		ReceivedAt:     s.ReceivedAt,
		Version:        s.Version,
	}
}

// SerialListFilter represents filter options for serial lists
type SerialListFilter struct {
	Statuses []string `json:"statuses" validate:"dive,oneof=RECEIVED AVAILABLE RESERVED SOLD DEFECTIVE SCRAPPED"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}
