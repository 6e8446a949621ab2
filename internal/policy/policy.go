// Package policy carries the request principal and expresses the row-level
// access rules as gorm scopes.
package policy

import (
	"context"

	"gorm.io/gorm"
)

// Principal is the identity every database access is evaluated against.
type Principal struct {
	UserID string
	// System bypasses all rules. Only CLI commands use it.
	System bool
}

// Anonymous has no user and sees nothing.
var Anonymous = Principal{}

// SystemPrincipal is used by maintenance commands such as seed.
var SystemPrincipal = Principal{System: true}

func (p Principal) Authenticated() bool {
	return p.System || p.UserID != ""
}

type contextKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal in ctx, or Anonymous.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(contextKey{}).(Principal); ok {
		return p
	}
	return Anonymous
}

const memberSpaces = "SELECT space_users.space_id FROM space_users WHERE space_users.user_id = ?"

const visibleLists = "SELECT lists.id FROM lists WHERE lists.space_id IN (" + memberSpaces + ") AND (lists.private = false OR lists.owner_id = ?)"

// deny matches no rows. Anonymous principals get it for every entity.
func deny(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// Spaces limits a spaces query to those p is a member of.
func Spaces(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.System:
			return db
		case p.UserID == "":
			return deny(db)
		}
		return db.Where("spaces.id IN ("+memberSpaces+")", p.UserID)
	}
}

// Lists limits a lists query to non-private lists in member spaces and lists p owns.
func Lists(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.System:
			return db
		case p.UserID == "":
			return deny(db)
		}
		return db.Where("lists.id IN ("+visibleLists+")", p.UserID, p.UserID)
	}
}

// Tasks limits a tasks query to tasks of member spaces.
func Tasks(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.System:
			return db
		case p.UserID == "":
			return deny(db)
		}
		return db.Where("tasks.space_id IN ("+memberSpaces+")", p.UserID)
	}
}

// Todos limits a todos query to todos on visible lists.
func Todos(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.System:
			return db
		case p.UserID == "":
			return deny(db)
		}
		return db.Where("todos.list_id IN ("+visibleLists+")", p.UserID, p.UserID)
	}
}

// Users limits a users query to p itself and users sharing a space with p.
func Users(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.System:
			return db
		case p.UserID == "":
			return deny(db)
		}
		return db.Where("users.id = ? OR users.id IN (SELECT space_users.user_id FROM space_users WHERE space_users.space_id IN ("+memberSpaces+"))", p.UserID, p.UserID)
	}
}
