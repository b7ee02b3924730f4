package jobqueue

import (
	"context"
	"testing"

	"github.com/MarketLensHQ/MarketLens/app/models"
	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundProcessorCreditsOnce(t *testing.T) {
	wallet := tokenwallet.NewService(tokenwallet.NewMemoryStore())
	ctx := context.Background()

	_, err := wallet.Credit(ctx, 1, 1000, models.LedgerReasonPurchase, "seed", "")
	require.NoError(t, err)
	_, err = wallet.DebitUsage(ctx, 1, 400, "inv-1")
	require.NoError(t, err)

	processor := NewRefundProcessor(wallet)
	job := &Job{
		ID:      "job-1",
		Type:    JobTypeRefundCredit,
		Payload: RefundCreditJobPayload{UserID: 1, Amount: 400, InvocationID: "inv-1"}.ToMap(),
	}

	require.NoError(t, processor.Handle(ctx, job))
	balance, _, err := wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	// Queue retry after crash: second run is a no-op.
	require.NoError(t, processor.Handle(ctx, job))
	balance, _, err = wallet.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestRefundProcessorRejectsBadPayload(t *testing.T) {
	processor := NewRefundProcessor(tokenwallet.NewService(tokenwallet.NewMemoryStore()))

	err := processor.Handle(context.Background(), &Job{
		ID:      "job-1",
		Type:    JobTypeRefundCredit,
		Payload: map[string]interface{}{"user_id": 0, "amount": -1},
	})
	assert.Error(t, err)
}

func TestJobLifecycleMarkers(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	assert.NotNil(t, job.CompletedAt)
}
