package shared

import "context"

// Role enumerates the access roles in the system.
type Role string

const (
	// RoleAdmin has company-wide access.
	RoleAdmin Role = "admin"
	// RolePharmacist operates a retail branch.
	RolePharmacist Role = "pharmacist"
	// RoleWholesaler operates a wholesale branch.
	RoleWholesaler Role = "wholesaler"
)

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	UserID   int64
	Username string
	Role     Role
	BranchID int64
}

// CanAccessBranch reports whether the actor may act on the given branch.
// Admins see everything; branch roles are scoped to their own branch.
func (a Actor) CanAccessBranch(branchID int64) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.BranchID != 0 && a.BranchID == branchID
}

type actorKey struct{}

// ContextWithActor attaches the actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the request actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
