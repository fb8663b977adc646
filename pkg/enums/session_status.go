package enums

// SessionStatus tracks the lifecycle of a provider checkout session.
// Pending is the only state the intent builder writes; every other
// transition comes from the webhook processor.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusPaid    SessionStatus = "paid"
	SessionStatusExpired SessionStatus = "expired"
	SessionStatusFailed  SessionStatus = "failed"
)
