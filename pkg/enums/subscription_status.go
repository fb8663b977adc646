package enums

// SubscriptionStatus mirrors the provider-side subscription states the
// admission rule cares about.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// BlocksNewSubscription reports whether an existing subscription in this state
// must refuse a new subscription checkout for the same customer.
func (s SubscriptionStatus) BlocksNewSubscription() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue, SubscriptionStatusUnpaid:
		return true
	}
	return false
}
