package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return conn
}

func seedOutboxEvent(t *testing.T, conn *gorm.DB, fn func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventReservationHeld,
		AggregateType: enums.AggregateReservation,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     time.Now().Add(-time.Minute),
	}
	if fn != nil {
		fn(&event)
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func TestFetchUnpublishedSkipsPublishedAndExhausted(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)

	now := time.Now()
	published := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.PublishedAt = &now
	})
	exhausted := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.AttemptCount = 10
	})
	older := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.CreatedAt = now.Add(-2 * time.Hour)
	})
	newer := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.CreatedAt = now.Add(-time.Hour)
	})

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)
	for _, row := range rows {
		assert.NotEqual(t, published.ID, row.ID)
		assert.NotEqual(t, exhausted.ID, row.ID)
	}
}

func TestMarkFailedIncrementsAttemptCount(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	event := seedOutboxEvent(t, conn, nil)

	require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New("broker unavailable")))
	require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New("broker unavailable")))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker unavailable", *row.LastError)
	assert.Nil(t, row.PublishedAt)
}

func TestMarkTerminalPinsAttemptCount(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	event := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.AttemptCount = 3
	})

	require.NoError(t, repo.MarkTerminalTx(conn, event.ID, errors.New("unsupported event type"), 10))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 10, row.AttemptCount)
}

func TestMarkPublishedStampsTimestamp(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	event := seedOutboxEvent(t, conn, nil)

	require.NoError(t, repo.MarkPublishedTx(conn, event.ID))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", event.ID).Error)
	require.NotNil(t, row.PublishedAt)
}

func TestExistsTxMatchesAggregate(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)
	event := seedOutboxEvent(t, conn, nil)

	exists, err := repo.ExistsTx(conn, event.EventType, event.AggregateType, event.AggregateID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsTx(conn, enums.EventReservationExpired, event.AggregateType, event.AggregateID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeletePublishedBeforeKeepsRecentAndUnpublished(t *testing.T) {
	conn := setupOutboxTestDB(t)
	repo := NewRepository(conn)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.PublishedAt = &old
	})
	kept := seedOutboxEvent(t, conn, func(e *models.OutboxEvent) {
		e.PublishedAt = &recent
	})
	pending := seedOutboxEvent(t, conn, nil)

	deleted, err := repo.DeletePublishedBefore(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, kept.ID)
	assert.Contains(t, ids, pending.ID)
}

func TestDLQInsertTruncatesLongErrors(t *testing.T) {
	conn := setupOutboxTestDB(t)
	dlqRepo := NewDLQRepository(conn)
	eventID := uuid.New()

	entry := models.OutboxDLQ{
		OutboxEventID: eventID,
		EventType:     string(enums.EventReservationHeld),
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		LastError:     strings.Repeat("x", maxDLQErrorLen+100),
		Attempts:      10,
	}
	require.NoError(t, dlqRepo.InsertTx(conn, entry))

	found, err := dlqRepo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.LastError, maxDLQErrorLen)
	assert.Equal(t, 10, found.Attempts)

	missing, err := dlqRepo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQListReturnsNewestFirst(t *testing.T) {
	conn := setupOutboxTestDB(t)
	dlqRepo := NewDLQRepository(conn)

	older := models.OutboxDLQ{
		OutboxEventID: uuid.New(),
		EventType:     string(enums.EventReservationHeld),
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		LastError:     "first failure",
		Attempts:      10,
		CreatedAt:     time.Now().Add(-time.Hour),
	}
	newer := models.OutboxDLQ{
		OutboxEventID: uuid.New(),
		EventType:     string(enums.EventReservationExpired),
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		LastError:     "second failure",
		Attempts:      10,
		CreatedAt:     time.Now().Add(-time.Minute),
	}
	require.NoError(t, dlqRepo.InsertTx(conn, older))
	require.NoError(t, dlqRepo.InsertTx(conn, newer))

	rows, err := dlqRepo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.OutboxEventID, rows[0].OutboxEventID)
	assert.Equal(t, older.OutboxEventID, rows[1].OutboxEventID)
}
