package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mfigueroa/pgcustodian/internal/config"
	"github.com/mfigueroa/pgcustodian/internal/ident"
	"github.com/mfigueroa/pgcustodian/internal/maintain"
	"github.com/mfigueroa/pgcustodian/internal/pg"
	"github.com/mfigueroa/pgcustodian/internal/secretbox"
	"github.com/mfigueroa/pgcustodian/internal/verify"
	"github.com/mfigueroa/pgcustodian/pkg/types"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pgcustodian error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch args[1] {
	case "verify":
		return runVerify(args[2:])
	case "cleanup":
		return runCleanup(args[2:])
	case "stats":
		return runStats(args[2:])
	case "seal":
		return runSeal(args[2:])
	case "reveal":
		return runReveal(args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	caller := fs.String("caller", "", "Caller identity (uuid) for the smoke step")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	runner, err := verify.NewRunner(pool, cfg.Source.Schema, log)
	if err != nil {
		return err
	}
	results := runner.Run(ctx, cfg.Expected)

	for _, diag := range verify.Smoke(ctx, pool, *caller) {
		log.Info(diag)
	}

	failures := 0
	for _, res := range results {
		if res.Status != types.StatusPass {
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("verification failed: %d of %d checks failed", failures, len(results))
	}
	log.Infof("verification passed: %d checks", len(results))
	return nil
}

func runCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	table := fs.String("table", "", "Table to clean up")
	days := fs.Int("days", -1, "Retention in days (default: per-table policy)")
	dryRun := fs.Bool("dry-run", false, "Count matching rows without deleting")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *table == "" {
		return fmt.Errorf("missing required flag: --table")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}

	ref, err := ident.New(*table, cfg.Expected.Tables)
	if err != nil {
		return err
	}
	retention := *days
	if retention < 0 {
		retention = cfg.RetentionDays(*table)
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := maintain.New(pool, cfg.Source.Schema)
	if err != nil {
		return err
	}
	if *dryRun {
		n, err := m.CleanupPreview(ctx, ref, retention)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"table": *table,
			"days":  retention,
		}).Infof("dry run: %d rows would be deleted", n)
		return nil
	}

	n, err := m.Cleanup(ctx, ref, retention)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"table": *table,
		"days":  retention,
	}).Infof("deleted %d rows", n)
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml")
	table := fs.String("table", "", "Table to summarize")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *table == "" {
		return fmt.Errorf("missing required flag: --table")
	}

	cfg, log, err := setup(*configPath)
	if err != nil {
		return err
	}

	ref, err := ident.New(*table, cfg.Expected.Tables)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := maintain.New(pool, cfg.Source.Schema)
	if err != nil {
		return err
	}
	stats, err := m.Stats(ctx, ref)
	if err != nil {
		return err
	}

	fields := logrus.Fields{"table": *table, "rows": stats.TotalRows}
	if stats.OldestRecord != nil {
		fields["oldest"] = stats.OldestRecord
		fields["newest"] = stats.NewestRecord
	}
	log.WithFields(fields).Info("table statistics")
	return nil
}

// runSeal encrypts one line of key material from stdin and prints the sealed
// envelope. The sealing key comes from PGCUSTODIAN_SEAL_KEY so secrets never
// appear in argv.
func runSeal(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := sealKeyFromEnv()
	if err != nil {
		return err
	}
	plaintext, err := readLine(os.Stdin)
	if err != nil {
		return err
	}

	sealed, err := secretbox.Seal(key, plaintext)
	if err != nil {
		return err
	}
	fmt.Println(sealed)
	return nil
}

// runReveal decrypts a sealed envelope from stdin. With --legacy it decodes
// the old base64-only storage format instead, reporting empty and malformed
// values distinctly.
func runReveal(args []string) error {
	fs := flag.NewFlagSet("reveal", flag.ContinueOnError)
	legacy := fs.Bool("legacy", false, "Treat input as legacy base64 storage")

	if err := fs.Parse(args); err != nil {
		return err
	}

	input, err := readLine(os.Stdin)
	if err != nil {
		return err
	}

	if *legacy {
		value, state := secretbox.DecodeLegacy(input)
		switch state {
		case secretbox.DecodeEmpty:
			return fmt.Errorf("legacy value is empty")
		case secretbox.DecodeMalformed:
			return fmt.Errorf("legacy value is not valid base64")
		}
		fmt.Println(value)
		return nil
	}

	key, err := sealKeyFromEnv()
	if err != nil {
		return err
	}
	plaintext, err := secretbox.Open(key, input)
	if err != nil {
		return err
	}
	fmt.Println(plaintext)
	return nil
}

func sealKeyFromEnv() ([]byte, error) {
	encoded := os.Getenv("PGCUSTODIAN_SEAL_KEY")
	if encoded == "" {
		return nil, fmt.Errorf("PGCUSTODIAN_SEAL_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("PGCUSTODIAN_SEAL_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PGCUSTODIAN_SEAL_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input on stdin")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func setup(configPath string) (*config.Config, *logrus.Logger, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("missing required flag: --config")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	return cfg, log, nil
}

func printUsage() {
	fmt.Print(`pgcustodian - schema verification and table maintenance

Usage:
  pgcustodian verify --config <path> [--caller <uuid>]
  pgcustodian cleanup --config <path> --table <name> [--days N] [--dry-run]
  pgcustodian stats --config <path> --table <name>
  pgcustodian seal < plaintext
  pgcustodian reveal [--legacy] < envelope

Commands:
  verify    Run the schema verification checklist and smoke step
  cleanup   Delete rows older than the retention window
  stats     Report row count and record age for a table
  seal      Encrypt provider key material from stdin (PGCUSTODIAN_SEAL_KEY)
  reveal    Decrypt a sealed envelope, or decode legacy base64 storage
  help      Show this help message
`)
}
