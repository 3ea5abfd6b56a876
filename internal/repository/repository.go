// Package repository holds the Postgres implementations of the stores and
// the types shared with the SQLite implementation.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// PostFilter narrows a post listing. Empty fields are ignored; a zero Limit
// returns every matching post.
type PostFilter struct {
	AuthorID   string
	FollowedBy string
	LikedBy    string
	Limit      int
	Offset     int
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
