package verify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfigueroa/pgcustodian/internal/keycheck"
	"github.com/mfigueroa/pgcustodian/internal/pg"
)

// Smoke exercises the utility surface end to end and returns one diagnostic
// line per step. It can only annotate a verification run: every failure is
// captured in the returned lines and nothing is ever propagated, so a broken
// utility never masks the checklist results. The caller's identity is an
// explicit parameter rather than something read from ambient session state.
func Smoke(ctx context.Context, q pg.Querier, callerID string) []string {
	var diags []string

	diags = append(diags, step("uuid generation", func() error {
		id := uuid.New()
		if id == uuid.Nil {
			return fmt.Errorf("generated nil uuid")
		}
		return nil
	}))

	diags = append(diags, step("caller identity", func() error {
		if callerID == "" {
			return fmt.Errorf("no caller identity supplied")
		}
		if _, err := uuid.Parse(callerID); err != nil {
			return fmt.Errorf("caller identity is not a uuid: %w", err)
		}
		return nil
	}))

	diags = append(diags, step("key format validators", func() error {
		if !keycheck.Valid("openai", "sk-test123456789012345678901234567890") {
			return fmt.Errorf("known-good openai key rejected")
		}
		if keycheck.Valid("openai", "invalid") {
			return fmt.Errorf("known-bad openai key accepted")
		}
		return nil
	}))

	diags = append(diags, step("database round trip", func() error {
		var one int
		return q.QueryRow(ctx, "SELECT 1").Scan(&one)
	}))

	return diags
}

// step runs fn, recovering panics, and renders the outcome as a diagnostic.
func step(name string, fn func() error) (diag string) {
	defer func() {
		if r := recover(); r != nil {
			diag = fmt.Sprintf("smoke: %s panicked: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Sprintf("smoke: %s failed: %v", name, err)
	}
	return fmt.Sprintf("smoke: %s ok", name)
}
