package models

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockModel is the persistence model for one ledger row. Variant and location use the
// zero UUID for "none" so the key columns can carry a plain unique index.
type StockModel struct {
	TenantAggregateModel
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:2"`
	VariantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:3"`
	WarehouseID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:4"`
	LocationID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:5"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastMovementAt   *time.Time
}

// TableName returns the table name for GORM
func (StockModel) TableName() string {
	return "stocks"
}

// ToDomain converts the persistence model to a domain Stock
func (m *StockModel) ToDomain() *inventory.Stock {
	return &inventory.Stock{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ProductID:           m.ProductID,
		VariantID:           m.VariantID,
		WarehouseID:         m.WarehouseID,
		LocationID:          m.LocationID,
		Quantity:            m.Quantity,
		ReservedQuantity:    m.ReservedQuantity,
		UnitCost:            m.UnitCost,
		LastMovementAt:      m.LastMovementAt,
	}
}

// FromDomain populates the persistence model from a domain Stock
func (m *StockModel) FromDomain(s *inventory.Stock) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.ProductID = s.ProductID
	m.VariantID = s.VariantID
	m.WarehouseID = s.WarehouseID
	m.LocationID = s.LocationID
	m.Quantity = s.Quantity
	m.ReservedQuantity = s.ReservedQuantity
	m.UnitCost = s.UnitCost
	m.LastMovementAt = s.LastMovementAt
}

// StockModelFromDomain creates a new persistence model from a domain Stock
func StockModelFromDomain(s *inventory.Stock) *StockModel {
	m := &StockModel{}
	m.FromDomain(s)
	return m
}

// StockMovementModel is the persistence model for a journal entry. LedgerLocationID is the
// location of the ledger row the movement applied to, kept for per-key sums.
type StockMovementModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_key,priority:1"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_key,priority:2"`
	VariantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_key,priority:3"`
	WarehouseID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_key,priority:4"`
	LedgerLocationID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_key,priority:5"`
	FromLocationID     uuid.UUID       `gorm:"type:uuid;not null"`
	ToLocationID       uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MovementType       string          `gorm:"type:varchar(30);not null;index"`
	ReferenceType      string          `gorm:"type:varchar(30);index:idx_movement_reference,priority:1"`
	ReferenceNumber    string          `gorm:"type:varchar(100);index:idx_movement_reference,priority:2"`
	ReferenceID        *uuid.UUID      `gorm:"type:uuid"`
	Reason             string          `gorm:"type:varchar(500)"`
	LotNumber          string          `gorm:"type:varchar(100)"`
	SerialNumber       string          `gorm:"type:varchar(100)"`
	OccurredAt         time.Time       `gorm:"not null;index"`
	ReversedMovementID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	CreatedBy          *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:             m.ID,
		TenantID:       m.TenantID,
		ProductID:      m.ProductID,
		VariantID:      m.VariantID,
		WarehouseID:    m.WarehouseID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Quantity:       m.Quantity,
		UnitCost:       m.UnitCost,
		MovementType:   inventory.MovementType(m.MovementType),
		Reference: inventory.Reference{
			Type:   m.ReferenceType,
			Number: m.ReferenceNumber,
			ID:     idOrNil(m.ReferenceID),
		},
		Reason:             m.Reason,
		LotNumber:          m.LotNumber,
		SerialNumber:       m.SerialNumber,
		OccurredAt:         m.OccurredAt,
		ReversedMovementID: m.ReversedMovementID,
		CreatedBy:          m.CreatedBy,
		CreatedAt:          m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement
func StockMovementModelFromDomain(mv *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:                 mv.ID,
		TenantID:           mv.TenantID,
		ProductID:          mv.ProductID,
		VariantID:          mv.VariantID,
		WarehouseID:        mv.WarehouseID,
		LedgerLocationID:   mv.Key().LocationID,
		FromLocationID:     mv.FromLocationID,
		ToLocationID:       mv.ToLocationID,
		Quantity:           mv.Quantity,
		UnitCost:           mv.UnitCost,
		MovementType:       string(mv.MovementType),
		ReferenceType:      mv.Reference.Type,
		ReferenceNumber:    mv.Reference.Number,
		ReferenceID:        nullableID(mv.Reference.ID),
		Reason:             mv.Reason,
		LotNumber:          mv.LotNumber,
		SerialNumber:       mv.SerialNumber,
		OccurredAt:         mv.OccurredAt,
		ReversedMovementID: mv.ReversedMovementID,
		CreatedBy:          mv.CreatedBy,
		CreatedAt:          mv.CreatedAt,
	}
}
