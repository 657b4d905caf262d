package importer

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// resolver maps natural keys (lowercase emails) in the inbound document to
// local user ids. Users created earlier in the same import are cached, so
// ticket sections can reference them without re-querying.
type resolver struct {
	db    *gorm.DB
	cache map[string]snowflake.ID
}

func newResolver(db *gorm.DB) *resolver {
	return &resolver{db: db, cache: make(map[string]snowflake.ID)}
}

// remember caches a freshly imported user.
func (r *resolver) remember(email string, id snowflake.ID) {
	email = normalizeEmail(email)
	if email != "" && id != 0 {
		r.cache[email] = id
	}
}

// resolve returns the user id for an email, or false when no user
// matches. Resolution is case-insensitive and never fails the caller:
// unresolved references degrade to unassigned.
func (r *resolver) resolve(ctx context.Context, email string) (snowflake.ID, bool) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, false
	}
	if id, ok := r.cache[email]; ok {
		return id, true
	}

	var id snowflake.ID
	err := r.db.WithContext(ctx).Raw(
		`SELECT id FROM users WHERE LOWER(email) = ?`,
		email,
	).Scan(&id).Error
	if err != nil || id == 0 {
		return 0, false
	}
	r.cache[email] = id
	return id, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
