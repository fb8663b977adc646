package enums

// RecipientType tags the monetary recipient variant on a payment record.
type RecipientType string

const (
	RecipientTypeEmployee RecipientType = "employee"
	RecipientTypeStore    RecipientType = "store"
)
