package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/tokenwallet"
	"github.com/gofiber/fiber/v2/log"
)

// RefundWallet is the wallet surface the refund processor needs.
type RefundWallet interface {
	RefundInvocation(ctx context.Context, userID uint, amount int64, invocationID string) (*tokenwallet.Result, error)
}

// RefundProcessor credits back the cost of canceled AI invocations.
type RefundProcessor struct {
	wallet RefundWallet
}

// NewRefundProcessor creates the refund credit processor.
func NewRefundProcessor(wallet RefundWallet) *RefundProcessor {
	return &RefundProcessor{wallet: wallet}
}

// Handle processes one refund credit job. Contention errors are returned so
// the queue retries; everything else that cannot succeed on retry completes
// the job with a log line instead of poisoning the queue.
func (p *RefundProcessor) Handle(ctx context.Context, job *Job) error {
	payload, err := RefundCreditJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid refund payload: %w", err)
	}
	if payload.UserID == 0 || payload.Amount <= 0 || payload.InvocationID == "" {
		return fmt.Errorf("refund payload incomplete: %+v", payload)
	}

	res, err := p.wallet.RefundInvocation(ctx, payload.UserID, payload.Amount, payload.InvocationID)
	if err != nil {
		if errors.Is(err, tokenwallet.ErrConflictRetryExhausted) {
			return err
		}
		return fmt.Errorf("refund credit failed: %w", err)
	}
	if !res.Applied {
		log.Infof("[JobQueue] Refund for invocation %s already applied", payload.InvocationID)
	}
	return nil
}

// EnqueueRefundCredit schedules a compensating credit for an invocation.
func EnqueueRefundCredit(q *Queue, userID uint, amount int64, invocationID string) (*Job, error) {
	payload := RefundCreditJobPayload{
		UserID:       userID,
		Amount:       amount,
		InvocationID: invocationID,
	}
	return q.EnqueueJob(JobTypeRefundCredit, payload.ToMap())
}
