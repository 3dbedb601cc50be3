package policies

import (
	"certhub-backend/internal/domain"
	"certhub-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

// Actor is the authenticated caller passed into every core operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == constants.Admin
}

// Policy answers capability questions for the ledger, issuance and payment services.
type Policy interface {
	// BalanceExempt actors are never charged and never checked for funds.
	BalanceExempt(actor Actor) bool
	CanManageCatalog(actor Actor) bool
	CanFinalize(actor Actor) bool
	CanAccessOwnedBy(actor Actor, ownerID uuid.UUID) bool
	// CanUseTemplate expects the template's dealers to be preloaded.
	CanUseTemplate(actor Actor, tpl *domain.CertificateTemplate) bool
}

// RolePolicy derives capabilities from constants.PermissionRoles.
type RolePolicy struct{}

var _ Policy = RolePolicy{}

func (RolePolicy) BalanceExempt(actor Actor) bool {
	return actor.IsAdmin()
}

func (RolePolicy) CanManageCatalog(actor Actor) bool {
	return constants.AllowedRole(constants.ManageCatalog, actor.Role)
}

func (RolePolicy) CanFinalize(actor Actor) bool {
	return constants.AllowedRole(constants.FinalizeTransactions, actor.Role)
}

func (RolePolicy) CanAccessOwnedBy(actor Actor, ownerID uuid.UUID) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != uuid.Nil && actor.UserID == ownerID
}

func (RolePolicy) CanUseTemplate(actor Actor, tpl *domain.CertificateTemplate) bool {
	if tpl == nil || !tpl.IsActive {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return tpl.ScopedTo(actor.UserID)
}
