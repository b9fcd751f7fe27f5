package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_EmitStampsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, Event{
		ApplicationID: "app-1",
		Action:        ActionApplicationCreated,
	}))

	events, err := pub.List(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_EmitKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(ctx, Event{
		Timestamp:     at,
		ApplicationID: "app-1",
		Action:        ActionTransitionExecuted,
		Command:       "submit_kyc",
		Stage:         "income_check",
	}))

	events, err := pub.List(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
	assert.Equal(t, "submit_kyc", events[0].Command)
}

func TestPublisher_ListFiltersByApplication(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, Event{ApplicationID: "app-1", Action: ActionApplicationCreated}))
	require.NoError(t, pub.Emit(ctx, Event{ApplicationID: "app-2", Action: ActionApplicationCreated}))
	require.NoError(t, pub.Emit(ctx, Event{ApplicationID: "app-1", Action: ActionTransitionExecuted}))

	events, err := pub.List(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionApplicationCreated, events[0].Action)
	assert.Equal(t, ActionTransitionExecuted, events[1].Action)

	events, err = pub.List(ctx, "app-3")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWorker_DrainsInbox(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{ApplicationID: "app-1", Action: ActionRepaymentOverdue}
	inbox <- Event{ApplicationID: "app-1", Action: ActionTransitionExecuted}

	require.Eventually(t, func() bool {
		events, err := store.ListByApplication(context.Background(), "app-1")
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
