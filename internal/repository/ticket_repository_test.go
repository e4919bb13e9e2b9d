package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	dup := mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})
	assert.ErrorIs(t, dup, ErrDuplicate)

	ref := mapPgError(&pgconn.PgError{Code: "23503", ConstraintName: "tickets_created_by_fkey"})
	assert.ErrorIs(t, ref, ErrInvalidReference)

	other := &pgconn.PgError{Code: "57P01"}
	assert.Same(t, other, mapPgError(other))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapPgError(plain))
	assert.NoError(t, mapPgError(nil))
}

func TestLikeEscaperNeutralizesWildcards(t *testing.T) {
	assert.Equal(t, `100\%`, likeEscaper.Replace("100%"))
	assert.Equal(t, `a\_b`, likeEscaper.Replace("a_b"))
	assert.Equal(t, `c:\\tmp`, likeEscaper.Replace(`c:\tmp`))
}
