package verify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mfigueroa/pgcustodian/internal/config"
	"github.com/mfigueroa/pgcustodian/internal/ident"
	"github.com/mfigueroa/pgcustodian/internal/pg"
	"github.com/mfigueroa/pgcustodian/pkg/types"
)

// Runner executes the verification checklist against one schema. Checks are
// independent reads over catalog views; a failing check never aborts the
// rest of the battery.
type Runner struct {
	q      pg.Querier
	schema ident.Ref
	log    *logrus.Logger
}

// NewRunner validates schema up front so the seed-row counts, which embed
// the schema in query text, can never be steered by a malformed name.
func NewRunner(q pg.Querier, schema string, log *logrus.Logger) (*Runner, error) {
	ref, err := ident.New(schema, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &Runner{q: q, schema: ref, log: log}, nil
}

// Run executes every check and returns their results in presentation order.
func (r *Runner) Run(ctx context.Context, exp config.ExpectedConfig) []types.CheckResult {
	results := []types.CheckResult{
		r.tablesCheck(ctx, exp),
		r.functionsCheck(ctx, exp),
		r.rlsCheck(ctx, exp),
		r.indexCheck(ctx, exp),
	}
	results = append(results, r.seedChecks(ctx, exp)...)

	for _, res := range results {
		r.log.WithFields(logrus.Fields{
			"check":  res.Name,
			"status": res.Status,
		}).Info(res.Detail)
	}
	return results
}

// AllPass reports whether every result passed.
func AllPass(results []types.CheckResult) bool {
	for _, res := range results {
		if res.Status != types.StatusPass {
			return false
		}
	}
	return true
}

func (r *Runner) tablesCheck(ctx context.Context, exp config.ExpectedConfig) types.CheckResult {
	expected := len(exp.Tables)
	var found int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_tables
		WHERE schemaname = $1 AND tablename = ANY($2)
	`, r.schema.Name(), exp.Tables).Scan(&found)
	if err != nil {
		return failed("tables", err)
	}
	if found == expected {
		return passed("tables", fmt.Sprintf("%d of %d expected tables present", found, expected))
	}
	return types.CheckResult{
		Name:   "tables",
		Status: types.StatusFail,
		Detail: fmt.Sprintf("missing %d of %d expected tables", expected-found, expected),
	}
}

func (r *Runner) functionsCheck(ctx context.Context, exp config.ExpectedConfig) types.CheckResult {
	minimum := exp.MinFunctions
	if minimum == 0 {
		minimum = len(exp.Functions)
	}
	var found int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT routine_name)
		FROM information_schema.routines
		WHERE routine_schema = $1 AND routine_name = ANY($2)
	`, r.schema.Name(), exp.Functions).Scan(&found)
	if err != nil {
		return failed("functions", err)
	}
	if found >= minimum {
		return passed("functions", fmt.Sprintf("%d functions present (minimum %d)", found, minimum))
	}
	return types.CheckResult{
		Name:   "functions",
		Status: types.StatusFail,
		Detail: fmt.Sprintf("only %d of at least %d expected functions present", found, minimum),
	}
}

func (r *Runner) rlsCheck(ctx context.Context, exp config.ExpectedConfig) types.CheckResult {
	var found int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_tables
		WHERE schemaname = $1 AND tablename = ANY($2) AND rowsecurity
	`, r.schema.Name(), exp.Tables).Scan(&found)
	if err != nil {
		return failed("row_level_security", err)
	}
	if found >= exp.MinRLSTables {
		return passed("row_level_security",
			fmt.Sprintf("%d tables with RLS enabled (minimum %d)", found, exp.MinRLSTables))
	}
	return types.CheckResult{
		Name:   "row_level_security",
		Status: types.StatusFail,
		Detail: fmt.Sprintf("only %d of at least %d tables have RLS enabled", found, exp.MinRLSTables),
	}
}

func (r *Runner) indexCheck(ctx context.Context, exp config.ExpectedConfig) types.CheckResult {
	var found int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE schemaname = $1 AND indexname LIKE $2 || '%'
	`, r.schema.Name(), exp.IndexPrefix).Scan(&found)
	if err != nil {
		return failed("indexes", err)
	}
	if found >= exp.MinIndexes {
		return passed("indexes",
			fmt.Sprintf("%d indexes with prefix %q (minimum %d)", found, exp.IndexPrefix, exp.MinIndexes))
	}
	return types.CheckResult{
		Name:   "indexes",
		Status: types.StatusFail,
		Detail: fmt.Sprintf("only %d of at least %d indexes with prefix %q", found, exp.MinIndexes, exp.IndexPrefix),
	}
}

func (r *Runner) seedChecks(ctx context.Context, exp config.ExpectedConfig) []types.CheckResult {
	var results []types.CheckResult
	for _, seed := range exp.Seed {
		name := "seed_" + seed.Table

		ref, err := ident.New(seed.Table, exp.Tables)
		if err != nil {
			results = append(results, failed(name, err))
			continue
		}

		var rows int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", r.schema.Quote(), ref.Quote())
		if err := r.q.QueryRow(ctx, query).Scan(&rows); err != nil {
			results = append(results, failed(name, err))
			continue
		}
		if rows >= seed.MinRows {
			results = append(results, passed(name,
				fmt.Sprintf("%d seed rows in %s (minimum %d)", rows, seed.Table, seed.MinRows)))
			continue
		}
		results = append(results, types.CheckResult{
			Name:   name,
			Status: types.StatusFail,
			Detail: fmt.Sprintf("only %d of at least %d seed rows in %s", rows, seed.MinRows, seed.Table),
		})
	}
	return results
}

func passed(name, detail string) types.CheckResult {
	return types.CheckResult{Name: name, Status: types.StatusPass, Detail: detail}
}

func failed(name string, err error) types.CheckResult {
	return types.CheckResult{
		Name:   name,
		Status: types.StatusFail,
		Detail: fmt.Sprintf("check could not run: %v", err),
	}
}
