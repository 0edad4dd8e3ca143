package models

// All returns every persisted model in dependency order: parents before children,
// the outbox last.
func All() []any {
	return []any{
		&StockModel{},
		&StockMovementModel{},
		&StockReservationModel{},
		&StockTransferModel{},
		&StockTransferItemModel{},
		&StockCountModel{},
		&StockCountItemModel{},
		&InventoryAdjustmentModel{},
		&InventoryAdjustmentItemModel{},
		&LotBatchModel{},
		&SerialNumberModel{},
		&ReorderRuleModel{},
		&ReorderSuggestionModel{},
		&OutboxEntryModel{},
	}
}
