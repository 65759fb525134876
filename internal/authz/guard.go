package authz

import (
	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
)

// RequirePermission checks that the principal holds the authority for the
// given feature and action. The returned error carries no hint about which
// authority was missing; that detail goes to the audit log only.
func (r *Resolver) RequirePermission(principal *internal.Principal, featureCode string, action permission.Action) error {
	if principal == nil {
		return internal.ErrPermissionDenied
	}

	authority := permission.Authority(featureCode, action)
	if principal.HasAuthority(authority) {
		return nil
	}

	r.logger.Warn("permission denied",
		"user_id", principal.UserID,
		"required", authority)
	return internal.ErrPermissionDenied
}

// HasPermission resolves against the store rather than token claims; used
// where a fresh answer matters more than the claim snapshot.
func (r *Resolver) HasPermission(userID int64, featureCode string, action permission.Action) (bool, error) {
	authorities, err := r.UserAuthorities(userID)
	if err != nil {
		return false, err
	}

	want := permission.Authority(featureCode, action)
	for _, a := range authorities {
		if a == want {
			return true, nil
		}
	}
	return false, nil
}
