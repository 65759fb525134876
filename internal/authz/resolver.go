package authz

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/access-management/internal"
	"github.com/frahmantamala/access-management/internal/permission"
	"github.com/frahmantamala/access-management/internal/role"
	"github.com/frahmantamala/access-management/internal/userrole"
)

// RoleStore is the slice of the role repository the resolver walks.
type RoleStore interface {
	GetByID(id int64) (*role.Role, error)
	ListPermissions(roleID int64) ([]permission.Permission, error)
}

// AssignmentStore supplies the assignments that may grant authority.
type AssignmentStore interface {
	ListByUser(userID int64) ([]userrole.UserRole, error)
}

// DirectGrantStore supplies per-user permission grants that bypass roles.
type DirectGrantStore interface {
	ListPermissions(userID int64) ([]permission.Permission, error)
}

// userCacheTTL bounds how long a per-user result may be served without
// recomputation. Per-user entries additionally go stale at the next
// validity-window boundary, so this cap only matters when no boundary is near.
const userCacheTTL = 30 * time.Second

// userCacheEntry is a memoized per-user result together with the moment it
// stops being trustworthy.
type userCacheEntry struct {
	perms   []permission.Permission
	staleAt time.Time
}

// Resolver computes effective permissions over the role hierarchy and the
// assignment set. Results are memoized; every graph or assignment mutation
// calls InvalidateAll before its write returns, so a stale entry never
// outlives the transaction that made it stale. Per-user entries also carry a
// deadline, because assignment validity moves with the clock alone: an entry
// expires at the earliest ValidFrom/ValidTo boundary among the user's
// assignments, capped by userCacheTTL.
type Resolver struct {
	roles       RoleStore
	assignments AssignmentStore
	grants      DirectGrantStore
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	roleCache map[int64][]permission.Permission
	userCache map[int64]userCacheEntry
}

func NewResolver(roles RoleStore, assignments AssignmentStore, grants DirectGrantStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		roles:       roles,
		assignments: assignments,
		grants:      grants,
		logger:      logger,
		now:         time.Now,
		roleCache:   make(map[int64][]permission.Permission),
		userCache:   make(map[int64]userCacheEntry),
	}
}

// InvalidateAll drops every memoized entry. Mutating services call this
// synchronously; correctness never depends on which entries a mutation
// actually touched.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.roleCache = make(map[int64][]permission.Permission)
	r.userCache = make(map[int64]userCacheEntry)
	r.mu.Unlock()
}

// EffectiveRolePermissions returns the union of a role's own permissions and
// everything inherited through its ancestor chain, deduplicated by
// (feature, action) identity. A visited set bounds the walk so a corrupt
// parent chain fails with CycleDetected instead of spinning.
func (r *Resolver) EffectiveRolePermissions(roleID int64) ([]permission.Permission, error) {
	r.mu.RLock()
	if cached, ok := r.roleCache[roleID]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	perms, err := r.collectRolePermissions(roleID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.roleCache[roleID] = perms
	r.mu.Unlock()
	return perms, nil
}

func (r *Resolver) collectRolePermissions(roleID int64) ([]permission.Permission, error) {
	seen := make(map[permKey]bool)
	var out []permission.Permission

	visited := make(map[int64]bool)
	currentID := roleID
	for {
		if visited[currentID] {
			r.logger.Error("cycle detected in role hierarchy", "role_id", currentID)
			return nil, internal.ErrCycleDetected
		}
		visited[currentID] = true

		current, err := r.roles.GetByID(currentID)
		if err != nil {
			return nil, err
		}

		perms, err := r.roles.ListPermissions(currentID)
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, perms, seen)

		if current.ParentID == nil {
			return out, nil
		}
		currentID = *current.ParentID
	}
}

// EffectiveUserPermissions unions permissions over all currently valid
// assignments plus the user's direct grants. Assignments with inheritance
// disabled contribute only the role's own permissions, not its ancestors'.
// The memoized result is served only until its deadline; past that the set
// is recomputed so window crossings take effect without any mutation.
func (r *Resolver) EffectiveUserPermissions(userID int64) ([]permission.Permission, error) {
	now := r.now()

	r.mu.RLock()
	if cached, ok := r.userCache[userID]; ok && now.Before(cached.staleAt) {
		r.mu.RUnlock()
		return cached.perms, nil
	}
	r.mu.RUnlock()

	assignments, err := r.assignments.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	staleAt := now.Add(userCacheTTL)
	seen := make(map[permKey]bool)
	var out []permission.Permission

	for i := range assignments {
		ur := &assignments[i]
		if boundary, ok := nextWindowBoundary(ur, now); ok && boundary.Before(staleAt) {
			staleAt = boundary
		}
		if !ur.IsValidAt(now) {
			continue
		}

		var perms []permission.Permission
		if ur.InheritPermissions {
			perms, err = r.EffectiveRolePermissions(ur.RoleID)
		} else {
			perms, err = r.roles.ListPermissions(ur.RoleID)
		}
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, perms, seen)
	}

	if r.grants != nil {
		direct, err := r.grants.ListPermissions(userID)
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, direct, seen)
	}

	r.mu.Lock()
	r.userCache[userID] = userCacheEntry{perms: out, staleAt: staleAt}
	r.mu.Unlock()
	return out, nil
}

// nextWindowBoundary returns the earliest future instant at which the
// assignment's validity answer flips: its ValidFrom if the window has not
// opened yet, else its ValidTo if one is set. Only ACTIVE rows move with the
// clock; every other status changes through a mutation, which invalidates.
func nextWindowBoundary(ur *userrole.UserRole, now time.Time) (time.Time, bool) {
	if !ur.Active || ur.Status != userrole.StatusActive {
		return time.Time{}, false
	}
	if now.Before(ur.ValidFrom) {
		return ur.ValidFrom, true
	}
	if ur.ValidTo != nil && now.Before(*ur.ValidTo) {
		return *ur.ValidTo, true
	}
	return time.Time{}, false
}

// UserAuthorities renders the user's effective permissions as sorted
// "featureCode:ACTION" strings, the shape that travels in token claims.
func (r *Resolver) UserAuthorities(userID int64) ([]string, error) {
	perms, err := r.EffectiveUserPermissions(userID)
	if err != nil {
		return nil, err
	}

	authorities := make([]string, 0, len(perms))
	for i := range perms {
		authorities = append(authorities, perms[i].Authority())
	}
	sort.Strings(authorities)
	return authorities, nil
}

type permKey struct {
	featureID int64
	action    permission.Action
}

func appendUnique(dst []permission.Permission, src []permission.Permission, seen map[permKey]bool) []permission.Permission {
	for _, p := range src {
		key := permKey{featureID: p.FeatureID, action: p.Action}
		if seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, p)
	}
	return dst
}
