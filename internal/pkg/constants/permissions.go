package constants

const (
	ViewData             = "view_data"
	IssueCertificates    = "issue_certificates"
	ManageStudents       = "manage_students"
	BuyCredit            = "buy_credit"
	ManageCatalog        = "manage_catalog"
	ManageDealers        = "manage_dealers"
	FinalizeTransactions = "finalize_transactions"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:             {Dealer, Admin},
	IssueCertificates:    {Dealer, Admin},
	ManageStudents:       {Dealer, Admin},
	BuyCredit:            {Dealer},
	ManageCatalog:        {Admin},
	ManageDealers:        {Admin},
	FinalizeTransactions: {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
