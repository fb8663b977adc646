package enums

// CheckoutKind discriminates the flows a checkout session can carry.
type CheckoutKind string

const (
	CheckoutKindSubscription CheckoutKind = "subscription"
	CheckoutKindPayment      CheckoutKind = "payment"
	CheckoutKindStoreTip     CheckoutKind = "store_tip"
	CheckoutKindEmployeeTip  CheckoutKind = "employee_tip"
)

func (k CheckoutKind) Valid() bool {
	switch k {
	case CheckoutKindSubscription, CheckoutKindPayment, CheckoutKindStoreTip, CheckoutKindEmployeeTip:
		return true
	}
	return false
}

// Tip reports whether the kind produces a payment record at intent time.
func (k CheckoutKind) Tip() bool {
	return k == CheckoutKindStoreTip || k == CheckoutKindEmployeeTip
}
