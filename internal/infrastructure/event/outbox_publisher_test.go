package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_SaveEventsInTransaction(t *testing.T) {
	db := newOutboxDB(t)
	publisher := NewOutboxPublisher(NewStockEventSerializer())
	ctx := context.Background()
	tenantID := uuid.New()
	event := newStockChangedEvent(t, tenantID)

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx, event)
	})
	require.NoError(t, err)

	var rows []models.OutboxEntryModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, event.EventID(), rows[0].EventID)
	assert.Equal(t, tenantID, rows[0].TenantID)
	assert.Equal(t, inventory.EventTypeStockChanged, rows[0].EventType)
	assert.Equal(t, inventory.AggregateTypeStock, rows[0].AggregateType)
	assert.Equal(t, shared.OutboxStatusPending, rows[0].Status)
	assert.NotEmpty(t, rows[0].Payload)
}

func TestOutboxPublisher_RollbackDiscardsEvents(t *testing.T) {
	db := newOutboxDB(t)
	publisher := NewOutboxPublisher(NewStockEventSerializer())
	ctx := context.Background()
	errAbort := errors.New("command failed")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.SaveEvents(ctx, tx, newStockChangedEvent(t, uuid.New())); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOutboxPublisher_Errors(t *testing.T) {
	db := newOutboxDB(t)
	publisher := NewOutboxPublisher(NewStockEventSerializer())
	ctx := context.Background()

	t.Run("no events", func(t *testing.T) {
		assert.NoError(t, publisher.SaveEvents(ctx, "ignored"))
	})

	t.Run("wrong transaction type", func(t *testing.T) {
		err := publisher.SaveEvents(ctx, "not a tx", newStockChangedEvent(t, uuid.New()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "*gorm.DB")
	})

	t.Run("unregistered event type", func(t *testing.T) {
		err := publisher.SaveEvents(ctx, db, newTestEvent("Unregistered", uuid.New()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})
}
