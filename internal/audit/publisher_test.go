package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lif/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), Event{
		Action:  string(EventQueryCompleted),
		Subject: "emp-42",
	})
	require.NoError(t, err)

	events, err := pub.ListBySubject(context.Background(), "emp-42")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventQueryCompleted), events[0].Action)
	assert.Equal(t, CategoryOperations, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), Event{
			Action:  string(EventMappingRegistered),
			Subject: "emp-42",
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListBySubject(context.Background(), "emp-42")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), Event{Action: string(EventQueryReceived)})
		}()
	}
	wg.Wait()
	// Some events may have been dropped; the publisher must stay usable.
	assert.NoError(t, pub.Emit(context.Background(), Event{Action: string(EventQueryReceived)}))
}

func TestPublisher_SetsTimestampAndCategory(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	err := pub.Emit(context.Background(), Event{
		Action:  string(EventMappingDeleted),
		Subject: "emp-7",
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.ListBySubject(context.Background(), "emp-7")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, !events[0].Timestamp.Before(before))
	assert.True(t, !events[0].Timestamp.After(after))
	assert.Equal(t, CategoryCompliance, events[0].Category)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), Event{
		Action:    string(EventEntityCreated),
		Subject:   "Person",
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.ListBySubject(context.Background(), "Person")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestStore_ListRecent(t *testing.T) {
	store := NewInMemoryStore()
	for _, subject := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(context.Background(), Event{Subject: subject}))
	}

	recent, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Subject)
	assert.Equal(t, "c", recent[1].Subject)
}

func TestLogAudit_EnrichesFromContext(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	ctx := requestcontext.WithCorrelationID(context.Background(), "corr-1")
	ctx = requestcontext.WithService(ctx, "portal")

	LogAudit(ctx, slog.Default(), pub, EventMappingConflict,
		"mapping_key", "hr/employeeNumber/emp-42",
		"outcome", "conflict",
		"reason", "existing mapping disagrees",
	)

	events, err := pub.ListBySubject(context.Background(), "hr/employeeNumber/emp-42")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "corr-1", events[0].CorrelationID)
	assert.Equal(t, "portal", events[0].Service)
	assert.Equal(t, "conflict", events[0].Outcome)
	assert.Equal(t, "existing mapping disagrees", events[0].Reason)
	assert.Equal(t, CategoryCompliance, events[0].Category)
}
