package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type smokeQuerier struct {
	rowErr error
}

func (s *smokeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{scan: func(dest ...any) error {
		if s.rowErr != nil {
			return s.rowErr
		}
		*(dest[0].(*int)) = 1
		return nil
	}}
}

func (s *smokeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("smoke step must not execute commands")
}

func TestSmoke_AllStepsPass(t *testing.T) {
	diags := Smoke(context.Background(), &smokeQuerier{}, "1f8f0a2e-9f0e-4f4b-9a53-0d8f3a9c2b11")

	require.Len(t, diags, 4)
	for _, d := range diags {
		assert.True(t, strings.HasSuffix(d, "ok"), d)
	}
}

func TestSmoke_DatabaseFailureIsDiagnosticOnly(t *testing.T) {
	q := &smokeQuerier{rowErr: errors.New("connection reset")}

	diags := Smoke(context.Background(), q, "1f8f0a2e-9f0e-4f4b-9a53-0d8f3a9c2b11")

	require.Len(t, diags, 4)
	assert.Contains(t, diags[3], "database round trip failed")
	assert.Contains(t, diags[3], "connection reset")
}

func TestSmoke_InvalidCallerIdentity(t *testing.T) {
	diags := Smoke(context.Background(), &smokeQuerier{}, "not-a-uuid")

	require.Len(t, diags, 4)
	assert.Contains(t, diags[1], "caller identity failed")
	// The remaining steps still run.
	assert.Contains(t, diags[2], "key format validators ok")
}

func TestSmoke_EmptyCallerIdentity(t *testing.T) {
	diags := Smoke(context.Background(), &smokeQuerier{}, "")

	assert.Contains(t, diags[1], "no caller identity supplied")
}
