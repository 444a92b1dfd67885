package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/pg2lite/pg2lite/internal/config"
	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
	"github.com/pg2lite/pg2lite/internal/pipeline"
	"github.com/pg2lite/pg2lite/internal/sqlitecheck"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a PostgreSQL DDL script into SQLite DDL",
	Long: `Convert reads a PostgreSQL 16 DDL script and writes the equivalent
SQLite DDL, recording every loss of semantics as a structured warning.`,
	Example: `  # Convert a file, writing SQLite DDL to stdout
  pg2lite convert --input schema.sql

  # Keep every schema, gate FK emission on, fail on any lossy mapping
  pg2lite convert --input schema.sql --include-all-schemas --enable-foreign-keys --strict

  # Write output and warnings to files, then self-check with SQLite
  pg2lite convert --input schema.sql --output schema.sqlite.sql --emit-warnings warnings.json --verify`,
	RunE: runConvert,
}

var (
	convertInput             string
	convertOutput            string
	convertSchema            string
	convertIncludeAllSchemas bool
	convertEnableForeignKeys bool
	convertStrict            bool
	convertEnumCheck         bool
	convertAutoincrement     bool
	convertEmitWarnings      string
	convertVerify            bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertInput, "input", "", "input DDL file (reads stdin if omitted)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "output file for rendered SQLite DDL (stdout if omitted)")
	convertCmd.Flags().StringVar(&convertSchema, "schema", "", `schema to keep (default "public")`)
	convertCmd.Flags().BoolVar(&convertIncludeAllSchemas, "include-all-schemas", false, "keep every schema instead of filtering to one")
	convertCmd.Flags().BoolVar(&convertEnableForeignKeys, "enable-foreign-keys", false, "emit FOREIGN KEY constraints and order tables accordingly")
	convertCmd.Flags().BoolVar(&convertStrict, "strict", false, "fail the conversion if any lossy-or-higher diagnostic is produced")
	convertCmd.Flags().BoolVar(&convertEnumCheck, "enum-check-emulation", false, "emit CHECK (col IN (...)) for enum-typed columns")
	convertCmd.Flags().BoolVar(&convertAutoincrement, "autoincrement", false, "render AUTOINCREMENT on rowid-alias primary keys")
	convertCmd.Flags().StringVar(&convertEmitWarnings, "emit-warnings", "", "write the warning list as JSON to this path (stderr if omitted)")
	convertCmd.Flags().BoolVar(&convertVerify, "verify", false, "execute the rendered output against an in-memory SQLite database")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load pg2lite.toml: %w", err)
	}

	opts := optionsFromConfigAndFlags(cmd, cfg)

	inputText, err := readInput(convertInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result, convErr := pipeline.Convert(inputText, opts)

	if result != nil && len(result.Warnings) > 0 {
		if err := writeWarnings(result.Warnings); err != nil {
			log.Printf("failed to write warnings: %v", err)
		}
	}

	if convErr != nil {
		var strictErr *diagnostic.StrictViolation
		if errors.As(convErr, &strictErr) {
			return strictErr
		}
		var parseErr *pipeline.ParseError
		if errors.As(convErr, &parseErr) {
			return fmt.Errorf("failed to parse input as PostgreSQL DDL: %w", parseErr)
		}
		return convErr
	}

	if convertVerify {
		if err := sqlitecheck.Verify(context.Background(), result.SQLiteText); err != nil {
			return fmt.Errorf("rendered output failed sqlite self-check: %w", err)
		}
	}

	return writeOutput(result.SQLiteText)
}

// optionsFromConfigAndFlags layers CLI flags over pg2lite.toml defaults:
// an explicitly-set flag always wins, otherwise the config file's value
// (if any) applies, otherwise the pipeline's own zero-value defaults apply.
func optionsFromConfigAndFlags(cmd *cobra.Command, cfg *config.Config) pipeline.Options {
	opts := pipeline.Options{
		Schema:             cfg.Schema,
		AllSchemas:         cfg.IncludeAllSchemas,
		EnableForeignKeys:  cfg.EnableForeignKeys,
		Strict:             cfg.Strict,
		EnumCheckEmulation: cfg.EnumCheckEmulation,
	}

	flags := cmd.Flags()
	if flags.Changed("schema") {
		opts.Schema = convertSchema
	}
	if flags.Changed("include-all-schemas") {
		opts.AllSchemas = convertIncludeAllSchemas
	}
	if flags.Changed("enable-foreign-keys") {
		opts.EnableForeignKeys = convertEnableForeignKeys
	}
	if flags.Changed("strict") {
		opts.Strict = convertStrict
	}
	if flags.Changed("enum-check-emulation") {
		opts.EnumCheckEmulation = convertEnumCheck
	}
	if flags.Changed("autoincrement") {
		opts.Autoincrement = convertAutoincrement
	}

	return opts
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeOutput(text string) error {
	if convertOutput == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(convertOutput, []byte(text), 0o644)
}

func writeWarnings(warnings []ir.Warning) error {
	data, err := json.MarshalIndent(warnings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	data = append(data, '\n')

	if convertEmitWarnings == "" {
		_, err := os.Stderr.Write(data)
		return err
	}
	return os.WriteFile(convertEmitWarnings, data, 0o644)
}
