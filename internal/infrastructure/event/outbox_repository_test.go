package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func newEntry(t *testing.T, tenantID uuid.UUID) *shared.OutboxEntry {
	t.Helper()
	return shared.NewOutboxEntry(newTestEvent(inventory.EventTypeStockChanged, tenantID), []byte(`{"data":"x"}`))
}

func TestGormOutboxRepository_ClaimBatch_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .* ORDER BY created_at ASC LIMIT \S+ FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "status"}))
	mock.ExpectCommit()

	entries, err := repo.ClaimBatch(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DeleteSentBefore_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	cutoff := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "outbox_events" WHERE status = $1 AND processed_at < $2`)).
		WithArgs(shared.OutboxStatusSent, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	deleted, err := repo.DeleteSentBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_SaveAndClaim(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.Save(ctx))

	first := newEntry(t, tenantID)
	second := newEntry(t, tenantID)
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	require.NoError(t, repo.Save(ctx, first, second))

	now := time.Now().UTC()
	claimed, err := repo.ClaimBatch(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, first.ID, claimed[0].ID, "oldest first")
	for _, e := range claimed {
		assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
	}

	// claimed entries are not handed out again until the processing timeout passes
	again, err := repo.ClaimBatch(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	stale, err := repo.ClaimBatch(ctx, now.Add(ProcessingTimeout+time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}

func TestGormOutboxRepository_ClaimBatch_RespectsRetrySchedule(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newEntry(t, uuid.New())
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.ClaimBatch(ctx, time.Now().UTC(), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	claimed[0].MarkFailed(time.Now().UTC(), "bus unavailable")
	require.NoError(t, repo.Update(ctx, claimed[0]))
	require.NotNil(t, claimed[0].NextRetryAt)

	notYet, err := repo.ClaimBatch(ctx, claimed[0].NextRetryAt.Add(-time.Millisecond), 1)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	due, err := repo.ClaimBatch(ctx, claimed[0].NextRetryAt.Add(time.Millisecond), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "bus unavailable", due[0].LastError)
}

func TestGormOutboxRepository_DeadLetters(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	dead := newEntry(t, uuid.New())
	dead.MaxRetries = 1
	dead.MarkFailed(time.Now().UTC(), "poison")
	require.Equal(t, shared.OutboxStatusDead, dead.Status)
	sent := newEntry(t, uuid.New())
	sent.MarkSent(time.Now().UTC())
	require.NoError(t, repo.Save(ctx, dead, sent, newEntry(t, uuid.New())))

	entries, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, dead.ID, entries[0].ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])

	found, err := repo.FindByID(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "poison", found.LastError)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	old := newEntry(t, uuid.New())
	old.MarkSent(time.Now().UTC())
	past := time.Now().UTC().Add(-48 * time.Hour)
	old.ProcessedAt = &past
	recent := newEntry(t, uuid.New())
	recent.MarkSent(time.Now().UTC())
	pending := newEntry(t, uuid.New())
	require.NoError(t, repo.Save(ctx, old, recent, pending))

	deleted, err := repo.DeleteSentBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(ctx, recent.ID)
	assert.NoError(t, err)
}
