package constants

// Roles stored in Users.role. Dealers buy credit and issue certificates for
// their own students; admins run the catalog and settle payments.
const (
	Admin  = "admin"
	Dealer = "dealer"
)

// IsValidRole reports whether role is a role this service knows.
func IsValidRole(role string) bool {
	return role == Admin || role == Dealer
}
