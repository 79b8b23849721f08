package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateUser        OutboxAggregateType = "user"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateBatchImport OutboxAggregateType = "batch_import"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateOrder,
	AggregateTransaction,
	AggregateBatchImport,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event queued for publishing.
type OutboxEventType string

const (
	EventUserRegistered         OutboxEventType = "user_registered"
	EventUserApproved           OutboxEventType = "user_approved"
	EventUserRejected           OutboxEventType = "user_rejected"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"

	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventBatchImportCompleted  OutboxEventType = "batch_import_completed"
	EventDepositRequested      OutboxEventType = "deposit_requested"
	EventDepositApproved       OutboxEventType = "deposit_approved"
	EventDepositRejected       OutboxEventType = "deposit_rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserRegistered,
	EventUserApproved,
	EventUserRejected,
	EventPasswordResetRequested,
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventBatchImportCompleted,
	EventDepositRequested,
	EventDepositApproved,
	EventDepositRejected,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why a row was moved to the dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
