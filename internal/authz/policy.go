// Package authz holds the per-endpoint authorization policies. A nil caller is an
// anonymous request. Every failure is a domain permission error.
package authz

import "billing_system/internal/domain"

// Authenticated requires any identity
func Authenticated(caller *domain.User) error {
	if caller == nil {
		return domain.Permission("authentication credentials were not provided")
	}
	return nil
}

// Staff requires an administrator
func Staff(caller *domain.User) error {
	if !caller.IsStaff() {
		return domain.Permission("administrator privileges required")
	}
	return nil
}

// StaffOrReadOnly lets anyone read and only administrators write.
// The decision depends on the caller alone, never on the target record.
func StaffOrReadOnly(caller *domain.User, safe bool) error {
	if safe {
		return nil
	}
	return Staff(caller)
}

// OwnerOrAdmin allows the identity owning the record or an administrator.
// Callers must establish that the record exists first.
func OwnerOrAdmin(caller *domain.User, ownerUserID uint) error {
	if caller == nil {
		return domain.Permission("authentication credentials were not provided")
	}
	if caller.IsStaff() || caller.ID == ownerUserID {
		return nil
	}
	return domain.Permission("you do not have permission to modify this account")
}

// AuthenticatedCustomer requires an identity holding the customer role
func AuthenticatedCustomer(caller *domain.User) error {
	if caller == nil || !caller.IsCustomer {
		return domain.Permission("only a customer identity may initiate a purchase")
	}
	return nil
}
