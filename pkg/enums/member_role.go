package enums

// MemberRole mirrors the roles minted into access tokens by the identity service.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleManager MemberRole = "manager"
	MemberRoleStaff   MemberRole = "staff"
	MemberRoleAdmin   MemberRole = "admin"
)
