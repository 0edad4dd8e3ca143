package models

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotBatchModel is the persistence model for the LotBatch aggregate.
type LotBatchModel struct {
	TenantAggregateModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lot_number,priority:2"`
	LotNumber         string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_lot_number,priority:3"`
	Status            string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	InitialQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SupplierID        *uuid.UUID      `gorm:"type:uuid"`
	SupplierLotNumber string          `gorm:"type:varchar(100)"`
	ManufacturedDate  *time.Time
	ReceivedDate      time.Time       `gorm:"not null"`
	ExpiryDate        *time.Time      `gorm:"index"`
	QuarantineReason  string          `gorm:"type:varchar(500)"`
	QuarantinedAt     *time.Time
	ApprovedAt        *time.Time
	ApprovedBy        *uuid.UUID      `gorm:"type:uuid"`
	Notes             string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LotBatchModel) TableName() string {
	return "lot_batches"
}

// ToDomain converts the persistence model to a domain LotBatch
func (m *LotBatchModel) ToDomain() *inventory.LotBatch {
	return &inventory.LotBatch{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ProductID:           m.ProductID,
		LotNumber:           m.LotNumber,
		Status:              inventory.LotStatus(m.Status),
		InitialQuantity:     m.InitialQuantity,
		CurrentQuantity:     m.CurrentQuantity,
		ReservedQuantity:    m.ReservedQuantity,
		SupplierID:          m.SupplierID,
		SupplierLotNumber:   m.SupplierLotNumber,
		ManufacturedDate:    m.ManufacturedDate,
		ReceivedDate:        m.ReceivedDate,
		ExpiryDate:          m.ExpiryDate,
		QuarantineReason:    m.QuarantineReason,
		QuarantinedAt:       m.QuarantinedAt,
		ApprovedAt:          m.ApprovedAt,
		ApprovedBy:          m.ApprovedBy,
		Notes:               m.Notes,
	}
}

// LotBatchModelFromDomain creates a new persistence model from a domain LotBatch
func LotBatchModelFromDomain(l *inventory.LotBatch) *LotBatchModel {
	m := &LotBatchModel{
		ProductID:         l.ProductID,
		LotNumber:         l.LotNumber,
		Status:            string(l.Status),
		InitialQuantity:   l.InitialQuantity,
		CurrentQuantity:   l.CurrentQuantity,
		ReservedQuantity:  l.ReservedQuantity,
		SupplierID:        l.SupplierID,
		SupplierLotNumber: l.SupplierLotNumber,
		ManufacturedDate:  l.ManufacturedDate,
		ReceivedDate:      l.ReceivedDate,
		ExpiryDate:        l.ExpiryDate,
		QuarantineReason:  l.QuarantineReason,
		QuarantinedAt:     l.QuarantinedAt,
		ApprovedAt:        l.ApprovedAt,
		ApprovedBy:        l.ApprovedBy,
		Notes:             l.Notes,
	}
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	return m
}

// SerialNumberModel is the persistence model for the SerialNumber aggregate.
type SerialNumberModel struct {
	TenantAggregateModel
	ProductID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_serial_number,priority:2"`
	Serial         string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_serial_number,priority:3"`
	Status         string     `gorm:"type:varchar(20);not null;default:'RECEIVED';index"`
	LotNumber      string     `gorm:"type:varchar(100)"`
	WarehouseID    *uuid.UUID `gorm:"type:uuid"`
	LocationID     *uuid.UUID `gorm:"type:uuid"`
	ReservationRef string     `gorm:"type:varchar(100)"`
	CustomerID     *uuid.UUID `gorm:"type:uuid"`
	SalesOrderID   *uuid.UUID `gorm:"type:uuid"`
	SoldAt         *time.Time
	WarrantyMonths int        `gorm:"not null;default:0"`
	WarrantyStart  *time.Time
	WarrantyEnd    *time.Time
	DefectReason   string     `gorm:"type:varchar(500)"`
	ScrapReason    string     `gorm:"type:varchar(500)"`
	ReceivedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SerialNumberModel) TableName() string {
	return "serial_numbers"
}

// ToDomain converts the persistence model to a domain SerialNumber
func (m *SerialNumberModel) ToDomain() *inventory.SerialNumber {
	return &inventory.SerialNumber{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ProductID:           m.ProductID,
		Serial:              m.Serial,
		Status:              inventory.SerialStatus(m.Status),
		LotNumber:           m.LotNumber,
		WarehouseID:         m.WarehouseID,
		LocationID:          m.LocationID,
		ReservationRef:      m.ReservationRef,
		CustomerID:          m.CustomerID,
		SalesOrderID:        m.SalesOrderID,
		SoldAt:              m.SoldAt,
		WarrantyMonths:      m.WarrantyMonths,
		WarrantyStart:       m.WarrantyStart,
		WarrantyEnd:         m.WarrantyEnd,
		DefectReason:        m.DefectReason,
		ScrapReason:         m.ScrapReason,
		ReceivedAt:          m.ReceivedAt,
	}
}

// SerialNumberModelFromDomain creates a new persistence model from a domain SerialNumber
func SerialNumberModelFromDomain(s *inventory.SerialNumber) *SerialNumberModel {
	m := &SerialNumberModel{
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
		DefectReason:   s.DefectReason,
		ScrapReason:    s.ScrapReason,
		ReceivedAt:     s.ReceivedAt,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}
