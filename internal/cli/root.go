// Package cli wires the pg2lite library entry point (internal/pipeline.
// Convert) to a thin cobra command surface: flag parsing and file I/O only.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pg2lite",
	Short: "pg2lite transpiles PostgreSQL DDL into SQLite DDL.",
	Long: `pg2lite reads a PostgreSQL 16 DDL script and emits a SQLite DDL
script that is executable by a stock SQLite CLI and, to the extent SQLite
supports it, semantically equivalent. It does not connect to any database,
migrate data, or convert views, functions, triggers, or policies.`,
}

// Execute runs the root command, exiting non-zero on any error outcome.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
