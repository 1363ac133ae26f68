package declarations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shiftline/shiftline/internal/directory"
)

// Capabilities is the actor's authority over declarations, resolved once per
// request from the role set and the externally-resolved subordinate set.
type Capabilities struct {
	ActorID   int64
	ActorName string

	// EditOwn allows ledger edits and submission of the actor's own
	// declaration.
	EditOwn bool
	// Approve allows approve/reject/settle on subordinates' declarations.
	Approve bool
	// Settle marks the payroll role: read Approved/Settlement declarations
	// and return them for correction. No ledger-edit rights.
	Settle bool
	// Bypass satisfies any visibility or authority check regardless of the
	// subordinate set.
	Bypass bool

	subordinates map[int64]struct{}
}

// Covers reports whether the employee is in the actor's subordinate set.
func (c Capabilities) Covers(employeeID int64) bool {
	_, ok := c.subordinates[employeeID]
	return ok
}

// SubordinateIDs returns the resolved subordinate set.
func (c Capabilities) SubordinateIDs() []int64 {
	ids := make([]int64, 0, len(c.subordinates))
	for id := range c.subordinates {
		ids = append(ids, id)
	}
	return ids
}

// CanManage reports whether the actor may approve/reject/settle a
// declaration owned by employeeID.
func (c Capabilities) CanManage(employeeID int64) bool {
	if c.Bypass {
		return true
	}
	return c.Approve && c.Covers(employeeID)
}

// CanView reports whether the actor may read the declaration at all.
func (c Capabilities) CanView(d *Declaration) bool {
	if c.Bypass {
		return true
	}
	if c.EditOwn && d.EmployeeID == c.ActorID {
		return true
	}
	if c.Approve && c.Covers(d.EmployeeID) {
		return true
	}
	if c.Settle && (d.Status == StatusApproved || d.Status == StatusSettlement) {
		return true
	}
	return false
}

// RoleFor returns the capacity label recorded alongside comments: the owner
// always comments as "employee", everyone else in their administrative role.
func (c Capabilities) RoleFor(d *Declaration) string {
	if d != nil && d.EmployeeID == c.ActorID {
		return "employee"
	}
	switch {
	case c.Bypass:
		return "admin"
	case c.Approve:
		return "supervisor"
	case c.Settle:
		return "payroll"
	}
	return "employee"
}

// RoleSource yields the actor's role names.
type RoleSource interface {
	EffectiveRoles(ctx context.Context, userID int64) ([]string, error)
}

// AccessResolver builds Capabilities from the role set and the directory.
type AccessResolver struct {
	roles     RoleSource
	directory directory.Resolver
	logger    *slog.Logger
}

// NewAccessResolver constructs an AccessResolver.
func NewAccessResolver(roles RoleSource, dir directory.Resolver, logger *slog.Logger) *AccessResolver {
	return &AccessResolver{roles: roles, directory: dir, logger: logger}
}

// Resolve fetches roles and, for supervisors, the subordinate set. The
// subordinate lookup is fetched once here and treated as read-only for the
// rest of the request.
func (r *AccessResolver) Resolve(ctx context.Context, actorID int64, actorName string) (Capabilities, error) {
	caps := Capabilities{ActorID: actorID, ActorName: actorName}

	roles, err := r.roles.EffectiveRoles(ctx, actorID)
	if err != nil {
		return Capabilities{}, fmt.Errorf("resolve roles: %w", err)
	}
	for _, role := range roles {
		switch role {
		case "employee":
			caps.EditOwn = true
		case "supervisor":
			caps.Approve = true
		case "payroll":
			caps.Settle = true
		case "admin":
			caps.Bypass = true
		}
	}

	if caps.Approve && !caps.Bypass && r.directory != nil {
		ids, err := r.directory.SubordinatesOf(ctx, actorID)
		if err != nil {
			// Degrade to an empty set; approval views may be incomplete
			// but the request proceeds.
			if r.logger != nil {
				r.logger.Warn("subordinate resolution failed",
					slog.Int64("actor_id", actorID), slog.Any("error", err))
			}
			ids = nil
		}
		caps.subordinates = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			caps.subordinates[id] = struct{}{}
		}
	}

	return caps, nil
}
