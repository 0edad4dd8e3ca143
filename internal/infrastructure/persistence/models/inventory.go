package models

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockReservationModel is the persistence model for the StockReservation aggregate.
type StockReservationModel struct {
	TenantAggregateModel
	ReservationNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_reservation_number_tenant,priority:2"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID         uuid.UUID       `gorm:"type:uuid;not null"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FulfilledQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ReservationType   string          `gorm:"type:varchar(20);not null"`
	ReferenceType     string          `gorm:"type:varchar(30)"`
	ReferenceNumber   string          `gorm:"type:varchar(100);index"`
	ReferenceID       *uuid.UUID      `gorm:"type:uuid"`
	Notes             string          `gorm:"type:varchar(500)"`
	ExpiresAt         *time.Time      `gorm:"index"`
	CancelReason      string          `gorm:"type:varchar(500)"`
	FulfilledAt       *time.Time
	CancelledAt       *time.Time
	ExpiredAt         *time.Time
}

// TableName returns the table name for GORM
func (StockReservationModel) TableName() string {
	return "stock_reservations"
}

// ToDomain converts the persistence model to a domain StockReservation
func (m *StockReservationModel) ToDomain() *inventory.StockReservation {
	return &inventory.StockReservation{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ReservationNumber:   m.ReservationNumber,
		ProductID:           m.ProductID,
		VariantID:           m.VariantID,
		WarehouseID:         m.WarehouseID,
		LocationID:          m.LocationID,
		Quantity:            m.Quantity,
		FulfilledQuantity:   m.FulfilledQuantity,
		Status:              inventory.ReservationStatus(m.Status),
		ReservationType:     inventory.ReservationType(m.ReservationType),
		Reference: inventory.Reference{
			Type:   m.ReferenceType,
			Number: m.ReferenceNumber,
			ID:     idOrNil(m.ReferenceID),
		},
		Notes:        m.Notes,
		ExpiresAt:    m.ExpiresAt,
		CancelReason: m.CancelReason,
		FulfilledAt:  m.FulfilledAt,
		CancelledAt:  m.CancelledAt,
		ExpiredAt:    m.ExpiredAt,
	}
}

// FromDomain populates the persistence model from a domain StockReservation
func (m *StockReservationModel) FromDomain(r *inventory.StockReservation) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.ReservationNumber = r.ReservationNumber
	m.ProductID = r.ProductID
	m.VariantID = r.VariantID
	m.WarehouseID = r.WarehouseID
	m.LocationID = r.LocationID
	m.Quantity = r.Quantity
	m.FulfilledQuantity = r.FulfilledQuantity
	m.Status = string(r.Status)
	m.ReservationType = string(r.ReservationType)
	m.ReferenceType = r.Reference.Type
	m.ReferenceNumber = r.Reference.Number
	m.ReferenceID = nullableID(r.Reference.ID)
	m.Notes = r.Notes
	m.ExpiresAt = r.ExpiresAt
	m.CancelReason = r.CancelReason
	m.FulfilledAt = r.FulfilledAt
	m.CancelledAt = r.CancelledAt
	m.ExpiredAt = r.ExpiredAt
}

// StockReservationModelFromDomain creates a new persistence model from a domain StockReservation
func StockReservationModelFromDomain(r *inventory.StockReservation) *StockReservationModel {
	m := &StockReservationModel{}
	m.FromDomain(r)
	return m
}

// StockTransferModel is the persistence model for the StockTransfer aggregate.
type StockTransferModel struct {
	TenantAggregateModel
	TransferNumber         string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_transfer_number_tenant,priority:2"`
	SourceWarehouseID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status                 string                   `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Notes                  string                   `gorm:"type:varchar(500)"`
	SubmittedAt            *time.Time
	ApprovedAt             *time.Time
	ApprovedBy             *uuid.UUID               `gorm:"type:uuid"`
	ShippedAt              *time.Time
	ReceivedAt             *time.Time
	RejectedAt             *time.Time
	RejectionReason        string                   `gorm:"type:varchar(500)"`
	CancelledAt            *time.Time
	CancelReason           string                   `gorm:"type:varchar(500)"`
	Items                  []StockTransferItemModel `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (StockTransferModel) TableName() string {
	return "stock_transfers"
}

// ToDomain converts the persistence model to a domain StockTransfer
func (m *StockTransferModel) ToDomain() *inventory.StockTransfer {
	t := &inventory.StockTransfer{
		TenantAggregateRoot:    m.ToDomainTenantAggregateRoot(),
		TransferNumber:         m.TransferNumber,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		Status:                 inventory.TransferStatus(m.Status),
		Notes:                  m.Notes,
		SubmittedAt:            m.SubmittedAt,
		ApprovedAt:             m.ApprovedAt,
		ApprovedBy:             m.ApprovedBy,
		ShippedAt:              m.ShippedAt,
		ReceivedAt:             m.ReceivedAt,
		RejectedAt:             m.RejectedAt,
		RejectionReason:        m.RejectionReason,
		CancelledAt:            m.CancelledAt,
		CancelReason:           m.CancelReason,
		Items:                  make([]inventory.StockTransferItem, len(m.Items)),
	}
	for i, item := range m.Items {
		t.Items[i] = *item.ToDomain()
	}
	return t
}

// FromDomain populates the persistence model from a domain StockTransfer
func (m *StockTransferModel) FromDomain(t *inventory.StockTransfer) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.TransferNumber = t.TransferNumber
	m.SourceWarehouseID = t.SourceWarehouseID
	m.DestinationWarehouseID = t.DestinationWarehouseID
	m.Status = string(t.Status)
	m.Notes = t.Notes
	m.SubmittedAt = t.SubmittedAt
	m.ApprovedAt = t.ApprovedAt
	m.ApprovedBy = t.ApprovedBy
	m.ShippedAt = t.ShippedAt
	m.ReceivedAt = t.ReceivedAt
	m.RejectedAt = t.RejectedAt
	m.RejectionReason = t.RejectionReason
	m.CancelledAt = t.CancelledAt
	m.CancelReason = t.CancelReason
	m.Items = make([]StockTransferItemModel, len(t.Items))
	for i := range t.Items {
		m.Items[i] = stockTransferItemModelFromDomain(&t.Items[i])
		m.Items[i].LineNo = i + 1
	}
}

// StockTransferModelFromDomain creates a new persistence model from a domain StockTransfer
func StockTransferModelFromDomain(t *inventory.StockTransfer) *StockTransferModel {
	m := &StockTransferModel{}
	m.FromDomain(t)
	return m
}

// StockTransferItemModel is the persistence model for one transfer line.
type StockTransferItemModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransferID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo                int             `gorm:"not null;default:0"`
	ProductID             uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID             uuid.UUID       `gorm:"type:uuid;not null"`
	SourceLocationID      uuid.UUID       `gorm:"type:uuid;not null"`
	DestinationLocationID uuid.UUID       `gorm:"type:uuid;not null"`
	RequestedQuantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippedQuantity       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DamagedQuantity       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LotNumber             string          `gorm:"type:varchar(100)"`
	SerialNumber          string          `gorm:"type:varchar(100)"`
	Notes                 string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockTransferItemModel) TableName() string {
	return "stock_transfer_items"
}

// ToDomain converts the persistence model to a domain StockTransferItem
func (m *StockTransferItemModel) ToDomain() *inventory.StockTransferItem {
	return &inventory.StockTransferItem{
		ID:                    m.ID,
		TransferID:            m.TransferID,
		ProductID:             m.ProductID,
		VariantID:             m.VariantID,
		SourceLocationID:      m.SourceLocationID,
		DestinationLocationID: m.DestinationLocationID,
		RequestedQuantity:     m.RequestedQuantity,
		ShippedQuantity:       m.ShippedQuantity,
		ReceivedQuantity:      m.ReceivedQuantity,
		DamagedQuantity:       m.DamagedQuantity,
		UnitCost:              m.UnitCost,
		LotNumber:             m.LotNumber,
		SerialNumber:          m.SerialNumber,
		Notes:                 m.Notes,
	}
}

func stockTransferItemModelFromDomain(i *inventory.StockTransferItem) StockTransferItemModel {
	return StockTransferItemModel{
		ID:                    i.ID,
		TransferID:            i.TransferID,
		ProductID:             i.ProductID,
		VariantID:             i.VariantID,
		SourceLocationID:      i.SourceLocationID,
		DestinationLocationID: i.DestinationLocationID,
		RequestedQuantity:     i.RequestedQuantity,
		ShippedQuantity:       i.ShippedQuantity,
		ReceivedQuantity:      i.ReceivedQuantity,
		DamagedQuantity:       i.DamagedQuantity,
		UnitCost:              i.UnitCost,
		LotNumber:             i.LotNumber,
		SerialNumber:          i.SerialNumber,
		Notes:                 i.Notes,
	}
}

// StockCountModel is the persistence model for the StockCount aggregate.
type StockCountModel struct {
	TenantAggregateModel
	CountNumber     string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_stock_count_number_tenant,priority:2"`
	WarehouseID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	LocationID      uuid.UUID             `gorm:"type:uuid;not null"`
	Status          string                `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IncludeAllStock bool                  `gorm:"not null;default:false"`
	Notes           string                `gorm:"type:varchar(500)"`
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID            `gorm:"type:uuid"`
	CancelledAt     *time.Time
	CancelReason    string                `gorm:"type:varchar(500)"`
	AdjustmentID    *uuid.UUID            `gorm:"type:uuid"`
	Items           []StockCountItemModel `gorm:"foreignKey:StockCountID;references:ID"`
}

// TableName returns the table name for GORM
func (StockCountModel) TableName() string {
	return "stock_counts"
}

// ToDomain converts the persistence model to a domain StockCount
func (m *StockCountModel) ToDomain() *inventory.StockCount {
	c := &inventory.StockCount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		CountNumber:         m.CountNumber,
		WarehouseID:         m.WarehouseID,
		LocationID:          m.LocationID,
		Status:              inventory.StockCountStatus(m.Status),
		IncludeAllStock:     m.IncludeAllStock,
		Notes:               m.Notes,
		StartedAt:           m.StartedAt,
		CompletedAt:         m.CompletedAt,
		ApprovedAt:          m.ApprovedAt,
		ApprovedBy:          m.ApprovedBy,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		AdjustmentID:        m.AdjustmentID,
		Items:               make([]inventory.StockCountItem, len(m.Items)),
	}
	for i, item := range m.Items {
		c.Items[i] = inventory.StockCountItem{
			ID:              item.ID,
			StockCountID:    item.StockCountID,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			LocationID:      item.LocationID,
			SystemQuantity:  item.SystemQuantity,
			CountedQuantity: item.CountedQuantity,
			UnitCost:        item.UnitCost,
			CountedAt:       item.CountedAt,
			CountedBy:       item.CountedBy,
			Notes:           item.Notes,
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain StockCount
func (m *StockCountModel) FromDomain(c *inventory.StockCount) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.CountNumber = c.CountNumber
	m.WarehouseID = c.WarehouseID
	m.LocationID = c.LocationID
	m.Status = string(c.Status)
	m.IncludeAllStock = c.IncludeAllStock
	m.Notes = c.Notes
	m.StartedAt = c.StartedAt
	m.CompletedAt = c.CompletedAt
	m.ApprovedAt = c.ApprovedAt
	m.ApprovedBy = c.ApprovedBy
	m.CancelledAt = c.CancelledAt
	m.CancelReason = c.CancelReason
	m.AdjustmentID = c.AdjustmentID
	m.Items = make([]StockCountItemModel, len(c.Items))
	for i, item := range c.Items {
		m.Items[i] = StockCountItemModel{
			ID:              item.ID,
			StockCountID:    item.StockCountID,
			LineNo:          i + 1,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			LocationID:      item.LocationID,
			SystemQuantity:  item.SystemQuantity,
			CountedQuantity: item.CountedQuantity,
			UnitCost:        item.UnitCost,
			CountedAt:       item.CountedAt,
			CountedBy:       item.CountedBy,
			Notes:           item.Notes,
		}
	}
}

// StockCountModelFromDomain creates a new persistence model from a domain StockCount
func StockCountModelFromDomain(c *inventory.StockCount) *StockCountModel {
	m := &StockCountModel{}
	m.FromDomain(c)
	return m
}

// StockCountItemModel is the persistence model for one count line. A NULL counted
// quantity means the line has not been counted yet.
type StockCountItemModel struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	StockCountID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	LineNo          int              `gorm:"not null;default:0"`
	ProductID       uuid.UUID        `gorm:"type:uuid;not null"`
	VariantID       uuid.UUID        `gorm:"type:uuid;not null"`
	LocationID      uuid.UUID        `gorm:"type:uuid;not null"`
	SystemQuantity  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CountedQuantity *decimal.Decimal `gorm:"type:decimal(18,4)"`
	UnitCost        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CountedAt       *time.Time
	CountedBy       *uuid.UUID       `gorm:"type:uuid"`
	Notes           string           `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockCountItemModel) TableName() string {
	return "stock_count_items"
}

// InventoryAdjustmentModel is the persistence model for the InventoryAdjustment aggregate.
type InventoryAdjustmentModel struct {
	TenantAggregateModel
	AdjustmentNumber string                         `gorm:"type:varchar(50);not null;uniqueIndex:idx_adjustment_number_tenant,priority:2"`
	WarehouseID      uuid.UUID                      `gorm:"type:uuid;not null;index"`
	AdjustmentType   string                         `gorm:"type:varchar(20);not null"`
	Reason           string                         `gorm:"type:varchar(500)"`
	Status           string                         `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	StockCountID     *uuid.UUID                     `gorm:"type:uuid;uniqueIndex"`
	SubmittedAt      *time.Time
	ApprovedAt       *time.Time
	ApprovedBy       *uuid.UUID                     `gorm:"type:uuid"`
	RejectedAt       *time.Time
	RejectionReason  string                         `gorm:"type:varchar(500)"`
	Items            []InventoryAdjustmentItemModel `gorm:"foreignKey:AdjustmentID;references:ID"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentModel) TableName() string {
	return "inventory_adjustments"
}

// ToDomain converts the persistence model to a domain InventoryAdjustment
func (m *InventoryAdjustmentModel) ToDomain() *inventory.InventoryAdjustment {
	a := &inventory.InventoryAdjustment{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		AdjustmentNumber:    m.AdjustmentNumber,
		WarehouseID:         m.WarehouseID,
		AdjustmentType:      inventory.AdjustmentType(m.AdjustmentType),
		Reason:              m.Reason,
		Status:              inventory.AdjustmentStatus(m.Status),
		StockCountID:        m.StockCountID,
		SubmittedAt:         m.SubmittedAt,
		ApprovedAt:          m.ApprovedAt,
		ApprovedBy:          m.ApprovedBy,
		RejectedAt:          m.RejectedAt,
		RejectionReason:     m.RejectionReason,
		Items:               make([]inventory.InventoryAdjustmentItem, len(m.Items)),
	}
	for i, item := range m.Items {
		a.Items[i] = inventory.InventoryAdjustmentItem{
			ID:             item.ID,
			AdjustmentID:   item.AdjustmentID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			LocationID:     item.LocationID,
			SystemQuantity: item.SystemQuantity,
			ActualQuantity: item.ActualQuantity,
			UnitCost:       item.UnitCost,
			LotNumber:      item.LotNumber,
			Notes:          item.Notes,
		}
	}
	return a
}

// FromDomain populates the persistence model from a domain InventoryAdjustment
func (m *InventoryAdjustmentModel) FromDomain(a *inventory.InventoryAdjustment) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.AdjustmentNumber = a.AdjustmentNumber
	m.WarehouseID = a.WarehouseID
	m.AdjustmentType = string(a.AdjustmentType)
	m.Reason = a.Reason
	m.Status = string(a.Status)
	m.StockCountID = a.StockCountID
	m.SubmittedAt = a.SubmittedAt
	m.ApprovedAt = a.ApprovedAt
	m.ApprovedBy = a.ApprovedBy
	m.RejectedAt = a.RejectedAt
	m.RejectionReason = a.RejectionReason
	m.Items = make([]InventoryAdjustmentItemModel, len(a.Items))
	for i, item := range a.Items {
		m.Items[i] = InventoryAdjustmentItemModel{
			ID:             item.ID,
			AdjustmentID:   item.AdjustmentID,
			LineNo:         i + 1,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			LocationID:     item.LocationID,
			SystemQuantity: item.SystemQuantity,
			ActualQuantity: item.ActualQuantity,
			UnitCost:       item.UnitCost,
			LotNumber:      item.LotNumber,
			Notes:          item.Notes,
		}
	}
}

// InventoryAdjustmentModelFromDomain creates a new persistence model from a domain InventoryAdjustment
func InventoryAdjustmentModelFromDomain(a *inventory.InventoryAdjustment) *InventoryAdjustmentModel {
	m := &InventoryAdjustmentModel{}
	m.FromDomain(a)
	return m
}

// InventoryAdjustmentItemModel is the persistence model for one adjustment line.
type InventoryAdjustmentItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AdjustmentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo         int             `gorm:"not null;default:0"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID      uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID     uuid.UUID       `gorm:"type:uuid;not null"`
	SystemQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ActualQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LotNumber      string          `gorm:"type:varchar(100)"`
	Notes          string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentItemModel) TableName() string {
	return "inventory_adjustment_items"
}
