package idempotency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDeduplicatesByProviderEventID(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	in := EventInput{
		Provider:        "PayFront",
		ProviderEventID: "evt-1",
		EventType:       "payment.captured",
		PayloadJSON:     `{"id":"evt-1"}`,
		SignatureValid:  true,
	}

	created, event, err := guard.Register(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "payfront", event.Provider)
	assert.Equal(t, "evt-1", event.ProviderEventID)

	// Redelivery of the same event returns the stored row.
	created, replay, err := guard.Register(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, event.ID, replay.ID)
}

func TestRegisterHashesMissingEventID(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	in := EventInput{Provider: "payfront", EventType: "payment.captured", PayloadJSON: `{"order":"o-1"}`}

	created, event, err := guard.Register(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, event.ProviderEventID, "hash:")

	// Identical payload without an id still dedups.
	created, _, err = guard.Register(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)

	// Different payload is a different event.
	created, _, err = guard.Register(ctx, EventInput{Provider: "payfront", PayloadJSON: `{"order":"o-2"}`})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMarkProcessedStampsOutcome(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	_, event, err := guard.Register(ctx, EventInput{Provider: "payfront", ProviderEventID: "evt-2"})
	require.NoError(t, err)
	require.Nil(t, event.ProcessedAt)

	require.NoError(t, guard.MarkProcessed(ctx, event.ID, ""))

	_, stored, err := guard.Register(ctx, EventInput{Provider: "payfront", ProviderEventID: "evt-2"})
	require.NoError(t, err)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}
