package enums

// OutboxEventType enumerates domain events emitted through the transactional outbox.
type OutboxEventType string

const (
	EventTipSucceeded OutboxEventType = "tip.succeeded"
)

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateTip OutboxAggregateType = "tip"
)
