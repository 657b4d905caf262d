// Package principal models the acting identity behind an operation,
// including the reserved system principal used by scheduled jobs.
package principal

import "github.com/bwmarrin/snowflake"

// Kind distinguishes how an action was initiated.
type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
	KindAPIKey Kind = "api_key"
)

// Principal identifies the actor of an operation. The zero value is not
// a valid principal; use System or ForUser.
type Principal struct {
	Kind Kind
	// UserID is set only for KindUser.
	UserID snowflake.ID
	// Role is the actor's role within the tenant, empty for system actions.
	Role string
}

// System returns the reserved principal for automated jobs. It carries no
// user id, so audit entries written by the scheduler can never be
// attributed to (or forged as) a human account.
func System() Principal {
	return Principal{Kind: KindSystem}
}

// ForUser returns a principal for a human actor.
func ForUser(id snowflake.ID, role string) Principal {
	return Principal{Kind: KindUser, UserID: id, Role: role}
}

// IsSystem reports whether the principal is the reserved system actor.
func (p Principal) IsSystem() bool { return p.Kind == KindSystem }

// ActorID renders the ledger actor id column value. System actions have
// no user id and record an empty actor id alongside the system kind.
func (p Principal) ActorID() string {
	if p.Kind == KindUser && p.UserID != 0 {
		return p.UserID.String()
	}
	return ""
}
