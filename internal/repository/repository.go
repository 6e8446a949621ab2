// Package repository implements data access over gorm. Every query is scoped
// by the access policy of the principal found in the context.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

// Order selects the creation-time ordering of find-many results.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

func (o Order) clause(table string) string {
	if o == OldestFirst {
		return table + ".created_at ASC"
	}
	return table + ".created_at DESC"
}

// Postgres error codes we translate.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	// Raised for ids that are not UUIDs.
	invalidTextRepresentation = "22P02"
)

// enhanced returns the request-bound handle and the principal it is evaluated for.
func enhanced(ctx context.Context, db *gorm.DB) (*gorm.DB, policy.Principal) {
	return db.WithContext(ctx), policy.FromContext(ctx)
}

// translate maps gorm and postgres errors onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Detail)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.Detail)
		case invalidTextRepresentation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.Message)
		}
	}
	return err
}
