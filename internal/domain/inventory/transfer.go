package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeTransfer is the aggregate type of transfers.
const AggregateTypeTransfer = "StockTransfer"

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferStatusDraft     TransferStatus = "DRAFT"
	TransferStatusSubmitted TransferStatus = "SUBMITTED"
	TransferStatusApproved  TransferStatus = "APPROVED"
	TransferStatusShipped   TransferStatus = "SHIPPED"
	TransferStatusReceived  TransferStatus = "RECEIVED"
	TransferStatusRejected  TransferStatus = "REJECTED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// transferTransitions lists the legal predecessor states of each target state.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusSubmitted: {TransferStatusDraft},
	TransferStatusApproved:  {TransferStatusSubmitted},
	TransferStatusShipped:   {TransferStatusApproved},
	TransferStatusReceived:  {TransferStatusShipped},
	TransferStatusRejected:  {TransferStatusSubmitted},
	TransferStatusCancelled: {TransferStatusDraft, TransferStatusSubmitted},
}

// CanTransitionTo reports whether the move from s to target is legal.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	for _, from := range transferTransitions[target] {
		if from == s {
			return true
		}
	}
	return false
}

// StockTransfer moves stock between two warehouses through approve, ship and receive steps.
type StockTransfer struct {
	shared.TenantAggregateRoot
	TransferNumber         string
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Status                 TransferStatus
	Notes                  string
	Items                  []StockTransferItem
	SubmittedAt            *time.Time
	ApprovedAt             *time.Time
	ApprovedBy             *uuid.UUID
	ShippedAt              *time.Time
	ReceivedAt             *time.Time
	RejectedAt             *time.Time
	RejectionReason        string
	CancelledAt            *time.Time
	CancelReason           string
}

// StockTransferItem is one product line of a transfer.
// Shipped <= Requested and Received + Damaged <= Shipped.
type StockTransferItem struct {
	ID                    uuid.UUID
	TransferID            uuid.UUID
	ProductID             uuid.UUID
	VariantID             uuid.UUID
	SourceLocationID      uuid.UUID
	DestinationLocationID uuid.UUID
	RequestedQuantity     decimal.Decimal
	ShippedQuantity       decimal.Decimal
	ReceivedQuantity      decimal.Decimal
	DamagedQuantity       decimal.Decimal
	UnitCost              decimal.Decimal
	LotNumber             string
	SerialNumber          string
	Notes                 string
}

// TransferItemSpec describes a line to add to a draft transfer.
type TransferItemSpec struct {
	ProductID             uuid.UUID
	VariantID             uuid.UUID
	SourceLocationID      uuid.UUID
	DestinationLocationID uuid.UUID
	Quantity              decimal.Decimal
	UnitCost              decimal.Decimal
	LotNumber             string
	SerialNumber          string
	Notes                 string
}

// ShipLine sets the shipped quantity of one item.
type ShipLine struct {
	ItemID   uuid.UUID
	Quantity decimal.Decimal
}

// ReceiveLine sets the received and damaged quantities of one item.
type ReceiveLine struct {
	ItemID   uuid.UUID
	Received decimal.Decimal
	Damaged  decimal.Decimal
}

// NewStockTransfer creates a Draft transfer.
func NewStockTransfer(tenantID uuid.UUID, number string, sourceWarehouseID, destinationWarehouseID uuid.UUID, notes string) (*StockTransfer, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewValidationError("INVALID_NUMBER", "transfer number is required")
	}
	if sourceWarehouseID == uuid.Nil || destinationWarehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "source and destination warehouses are required")
	}
	if sourceWarehouseID == destinationWarehouseID {
		return nil, shared.NewValidationError("SAME_WAREHOUSE", "source and destination warehouses must differ")
	}
	t := &StockTransfer{
		TenantAggregateRoot:    shared.NewTenantAggregateRoot(tenantID),
		TransferNumber:         number,
		SourceWarehouseID:      sourceWarehouseID,
		DestinationWarehouseID: destinationWarehouseID,
		Status:                 TransferStatusDraft,
		Notes:                  notes,
		Items:                  make([]StockTransferItem, 0),
	}
	t.AddDomainEvent(NewTransferStatusChangedEvent(t, "", TransferStatusDraft, ""))
	return t, nil
}

// GenerateTransferNumber returns TRF-<yyyymmdd>-<8 hex>.
func GenerateTransferNumber(now time.Time) string {
	return generateNumber("TRF", now)
}

// SourceKey is the ledger key an item ships from.
func (t *StockTransfer) SourceKey(item *StockTransferItem) StockKey {
	return StockKey{TenantID: t.TenantID, ProductID: item.ProductID, VariantID: item.VariantID,
		WarehouseID: t.SourceWarehouseID, LocationID: item.SourceLocationID}
}

// DestinationKey is the ledger key an item is received into.
func (t *StockTransfer) DestinationKey(item *StockTransferItem) StockKey {
	return StockKey{TenantID: t.TenantID, ProductID: item.ProductID, VariantID: item.VariantID,
		WarehouseID: t.DestinationWarehouseID, LocationID: item.DestinationLocationID}
}

// FindItem returns the item with id.
func (t *StockTransfer) FindItem(id uuid.UUID) (*StockTransferItem, error) {
	for i := range t.Items {
		if t.Items[i].ID == id {
			return &t.Items[i], nil
		}
	}
	return nil, shared.NewNotFoundError("transfer item", id)
}

func (t *StockTransfer) requireDraft(action string) error {
	if t.Status != TransferStatusDraft {
		return shared.NewInvalidTransitionError("transfer", string(t.Status), action)
	}
	return nil
}

// AddItem appends a line to a Draft transfer.
func (t *StockTransfer) AddItem(spec TransferItemSpec) (*StockTransferItem, error) {
	if err := t.requireDraft("add items to"); err != nil {
		return nil, err
	}
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID is required")
	}
	if !spec.Quantity.IsPositive() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "requested quantity must be positive")
	}
	if spec.UnitCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_COST", "unit cost cannot be negative")
	}
	t.Items = append(t.Items, StockTransferItem{
		ID:                    uuid.New(),
		TransferID:            t.ID,
		ProductID:             spec.ProductID,
		VariantID:             spec.VariantID,
		SourceLocationID:      spec.SourceLocationID,
		DestinationLocationID: spec.DestinationLocationID,
		RequestedQuantity:     spec.Quantity,
		ShippedQuantity:       decimal.Zero,
		ReceivedQuantity:      decimal.Zero,
		DamagedQuantity:       decimal.Zero,
		UnitCost:              spec.UnitCost,
		LotNumber:             spec.LotNumber,
		SerialNumber:          spec.SerialNumber,
		Notes:                 spec.Notes,
	})
	t.IncrementVersion()
	return &t.Items[len(t.Items)-1], nil
}

// UpdateItemQuantity changes the requested quantity of a Draft line.
func (t *StockTransfer) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	if err := t.requireDraft("update items of"); err != nil {
		return err
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", "requested quantity must be positive")
	}
	item, err := t.FindItem(itemID)
	if err != nil {
		return err
	}
	item.RequestedQuantity = quantity
	t.IncrementVersion()
	return nil
}

// RemoveItem drops a line from a Draft transfer.
func (t *StockTransfer) RemoveItem(itemID uuid.UUID) error {
	if err := t.requireDraft("remove items from"); err != nil {
		return err
	}
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.IncrementVersion()
			return nil
		}
	}
	return shared.NewNotFoundError("transfer item", itemID)
}

func (t *StockTransfer) transition(target TransferStatus, action, reason string) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("transfer", string(t.Status), action)
	}
	from := t.Status
	t.Status = target
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferStatusChangedEvent(t, from, target, reason))
	return nil
}

// Submit sends a Draft transfer for approval. Every line must request a positive quantity.
func (t *StockTransfer) Submit() error {
	if err := t.requireDraft("submit"); err != nil {
		return err
	}
	if len(t.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "transfer has no items")
	}
	for _, item := range t.Items {
		if !item.RequestedQuantity.IsPositive() {
			return shared.NewValidationError("INVALID_QUANTITY",
				fmt.Sprintf("item %s requests a non-positive quantity", item.ID))
		}
	}
	now := time.Now().UTC()
	t.SubmittedAt = &now
	return t.transition(TransferStatusSubmitted, "submit", "")
}

// RequestedBySourceKey aggregates requested quantities per source ledger key.
func (t *StockTransfer) RequestedBySourceKey() map[StockKey]decimal.Decimal {
	out := make(map[StockKey]decimal.Decimal)
	for i := range t.Items {
		k := t.SourceKey(&t.Items[i])
		out[k] = out[k].Add(t.Items[i].RequestedQuantity)
	}
	return out
}

// Approve marks a Submitted transfer approved. Stock availability is checked by the caller.
func (t *StockTransfer) Approve(approvedBy uuid.UUID) error {
	if t.Status != TransferStatusSubmitted {
		return shared.NewInvalidTransitionError("transfer", string(t.Status), "approve")
	}
	now := time.Now().UTC()
	t.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		t.ApprovedBy = &approvedBy
	}
	return t.transition(TransferStatusApproved, "approve", "")
}

// Ship records shipped quantities. With no lines every item ships its full request;
// items not named in lines ship nothing. At least one unit must ship.
func (t *StockTransfer) Ship(lines []ShipLine) error {
	if t.Status != TransferStatusApproved {
		return shared.NewInvalidTransitionError("transfer", string(t.Status), "ship")
	}

	shipped := make(map[uuid.UUID]decimal.Decimal, len(t.Items))
	if len(lines) == 0 {
		for _, item := range t.Items {
			shipped[item.ID] = item.RequestedQuantity
		}
	} else {
		for _, line := range lines {
			item, err := t.FindItem(line.ItemID)
			if err != nil {
				return err
			}
			if _, dup := shipped[line.ItemID]; dup {
				return shared.NewValidationError("DUPLICATE_LINE", fmt.Sprintf("item %s listed twice", line.ItemID))
			}
			if line.Quantity.IsNegative() {
				return shared.NewValidationError("INVALID_QUANTITY", "shipped quantity cannot be negative")
			}
			if line.Quantity.GreaterThan(item.RequestedQuantity) {
				return shared.NewValidationError("EXCEEDS_REQUESTED",
					fmt.Sprintf("item %s ships %s of %s requested", item.ID, line.Quantity, item.RequestedQuantity))
			}
			shipped[line.ItemID] = line.Quantity
		}
	}

	total := decimal.Zero
	for _, q := range shipped {
		total = total.Add(q)
	}
	if !total.IsPositive() {
		return shared.NewValidationError("NOTHING_SHIPPED", "at least one unit must ship")
	}

	for i := range t.Items {
		t.Items[i].ShippedQuantity = shipped[t.Items[i].ID]
	}
	now := time.Now().UTC()
	t.ShippedAt = &now
	if err := t.transition(TransferStatusShipped, "ship", ""); err != nil {
		return err
	}
	t.AddDomainEvent(NewTransferShippedEvent(t))
	return nil
}

// Receive records received and damaged quantities. With no lines everything shipped is received undamaged.
func (t *StockTransfer) Receive(lines []ReceiveLine) error {
	if t.Status != TransferStatusShipped {
		return shared.NewInvalidTransitionError("transfer", string(t.Status), "receive")
	}

	type outcome struct{ received, damaged decimal.Decimal }
	results := make(map[uuid.UUID]outcome, len(t.Items))
	if len(lines) == 0 {
		for _, item := range t.Items {
			results[item.ID] = outcome{received: item.ShippedQuantity, damaged: decimal.Zero}
		}
	} else {
		for _, line := range lines {
			item, err := t.FindItem(line.ItemID)
			if err != nil {
				return err
			}
			if _, dup := results[line.ItemID]; dup {
				return shared.NewValidationError("DUPLICATE_LINE", fmt.Sprintf("item %s listed twice", line.ItemID))
			}
			if line.Received.IsNegative() || line.Damaged.IsNegative() {
				return shared.NewValidationError("INVALID_QUANTITY", "received and damaged quantities cannot be negative")
			}
			if line.Received.Add(line.Damaged).GreaterThan(item.ShippedQuantity) {
				return shared.NewValidationError("EXCEEDS_SHIPPED",
					fmt.Sprintf("item %s receives %s and damages %s of %s shipped",
						item.ID, line.Received, line.Damaged, item.ShippedQuantity))
			}
			results[line.ItemID] = outcome{received: line.Received, damaged: line.Damaged}
		}
	}

	for i := range t.Items {
		r, ok := results[t.Items[i].ID]
		if !ok {
			r = outcome{received: decimal.Zero, damaged: decimal.Zero}
		}
		t.Items[i].ReceivedQuantity = r.received
		t.Items[i].DamagedQuantity = r.damaged
	}
	now := time.Now().UTC()
	t.ReceivedAt = &now
	if err := t.transition(TransferStatusReceived, "receive", ""); err != nil {
		return err
	}
	t.AddDomainEvent(NewTransferReceivedEvent(t))
	return nil
}

// Reject declines a transfer that has not shipped.
func (t *StockTransfer) Reject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("REASON_REQUIRED", "rejection reason is required")
	}
	if err := t.transition(TransferStatusRejected, "reject", reason); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.RejectedAt = &now
	t.RejectionReason = reason
	return nil
}

// Cancel abandons a transfer before approval.
func (t *StockTransfer) Cancel(reason string) error {
	if err := t.transition(TransferStatusCancelled, "cancel", reason); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CancelledAt = &now
	t.CancelReason = reason
	return nil
}

// TotalDamaged sums damaged quantities across items.
func (t *StockTransfer) TotalDamaged() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.DamagedQuantity)
	}
	return total
}
