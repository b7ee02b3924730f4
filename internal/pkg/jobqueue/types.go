package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeRefundCredit  JobType = "refund_credit"
	JobTypeLedgerArchive JobType = "ledger_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// RefundCreditJobPayload contains the payload for refund credit jobs.
// The invocation ID keys the compensating ledger entry, so a job retried
// after a partial failure cannot refund twice.
type RefundCreditJobPayload struct {
	UserID       uint   `json:"user_id"`
	Amount       int64  `json:"amount"`
	InvocationID string `json:"invocation_id"`
}

// ToMap converts the payload to a map for storage
func (p RefundCreditJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       p.UserID,
		"amount":        p.Amount,
		"invocation_id": p.InvocationID,
	}
}

// RefundCreditJobPayloadFromMap creates a payload from a map
func RefundCreditJobPayloadFromMap(data map[string]interface{}) (*RefundCreditJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload RefundCreditJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// LedgerArchiveJobPayload contains the payload for ledger archive export jobs
type LedgerArchiveJobPayload struct {
	Day string `json:"day"` // YYYY-MM-DD
}

// ToMap converts the payload to a map for storage
func (p LedgerArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"day": p.Day,
	}
}

// LedgerArchiveJobPayloadFromMap creates a payload from a map
func LedgerArchiveJobPayloadFromMap(data map[string]interface{}) (*LedgerArchiveJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload LedgerArchiveJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
