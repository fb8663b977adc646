package enums

// TipStatus is the payment record state. Succeeded, refunded and failed are
// terminal; pending is the only state this core transitions out of.
type TipStatus string

const (
	TipStatusPending   TipStatus = "pending"
	TipStatusSucceeded TipStatus = "succeeded"
	TipStatusRefunded  TipStatus = "refunded"
	TipStatusFailed    TipStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TipStatus) Terminal() bool {
	return s != TipStatusPending
}
