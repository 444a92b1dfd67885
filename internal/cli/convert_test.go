package cli

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/pg2lite/pg2lite/internal/config"
)

// resetConvertFlags clears convertCmd's pflag "Changed" bookkeeping so each
// test starts as if no flag had been passed on the command line, since the
// flag variables and convertCmd are package-level state shared across tests.
func resetConvertFlags(t *testing.T) {
	t.Helper()
	convertCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	convertSchema = ""
	convertIncludeAllSchemas = false
	convertEnableForeignKeys = false
	convertStrict = false
	convertEnumCheck = false
	convertAutoincrement = false
}

func TestOptionsFromConfigAndFlagsDefaultsToConfig(t *testing.T) {
	resetConvertFlags(t)
	cfg := &config.Config{
		Schema:             "analytics",
		IncludeAllSchemas:  true,
		EnableForeignKeys:  true,
		Strict:             true,
		EnumCheckEmulation: true,
	}

	opts := optionsFromConfigAndFlags(convertCmd, cfg)

	if opts.Schema != "analytics" || !opts.AllSchemas || !opts.EnableForeignKeys || !opts.Strict || !opts.EnumCheckEmulation {
		t.Errorf("expected config values to flow through unchanged, got %+v", opts)
	}
}

func TestOptionsFromConfigAndFlagsFlagOverridesConfig(t *testing.T) {
	resetConvertFlags(t)
	cfg := &config.Config{Schema: "analytics", Strict: true}

	if err := convertCmd.Flags().Set("schema", "public"); err != nil {
		t.Fatalf("Set(schema): %v", err)
	}
	if err := convertCmd.Flags().Set("strict", "false"); err != nil {
		t.Fatalf("Set(strict): %v", err)
	}

	opts := optionsFromConfigAndFlags(convertCmd, cfg)

	if opts.Schema != "public" {
		t.Errorf("Schema = %q, want flag-provided \"public\" to win over config", opts.Schema)
	}
	if opts.Strict {
		t.Errorf("Strict = true, want explicit --strict=false to win over config's true")
	}
}

func TestOptionsFromConfigAndFlagsUnsetFlagLeavesConfigAlone(t *testing.T) {
	resetConvertFlags(t)
	cfg := &config.Config{EnableForeignKeys: true}

	opts := optionsFromConfigAndFlags(convertCmd, cfg)

	if !opts.EnableForeignKeys {
		t.Errorf("expected an unset --enable-foreign-keys flag to leave the config's true value in place")
	}
}

func TestOptionsFromConfigAndFlagsAutoincrementHasNoConfigFallback(t *testing.T) {
	resetConvertFlags(t)
	cfg := &config.Config{}

	if err := convertCmd.Flags().Set("autoincrement", "true"); err != nil {
		t.Fatalf("Set(autoincrement): %v", err)
	}

	opts := optionsFromConfigAndFlags(convertCmd, cfg)
	if !opts.Autoincrement {
		t.Errorf("expected explicit --autoincrement=true to set Autoincrement")
	}
}
