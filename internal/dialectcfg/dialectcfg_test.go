package dialectcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != *Default() {
		t.Fatalf("got %+v, want the default config", cfg)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
dialect = "mysql"
int_division_yields_float = false
synthetic_primary_key_column = "id"
default_varchar_length = 128
`
	if err := os.WriteFile(filepath.Join(dir, "windrift.dialect.toml"), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dialect != "mysql" {
		t.Errorf("dialect = %q, want mysql", cfg.Dialect)
	}
	if cfg.IntDivisionYieldsFloat {
		t.Error("expected int division folding to be disabled")
	}
	if cfg.SyntheticPrimaryKeyColumn != "id" {
		t.Errorf("synthetic primary key column = %q, want id", cfg.SyntheticPrimaryKeyColumn)
	}
	if cfg.DefaultVarcharLength != 128 {
		t.Errorf("default varchar length = %d, want 128", cfg.DefaultVarcharLength)
	}
}

func TestLoadAppliesDefaultsForZeroValueFields(t *testing.T) {
	dir := t.TempDir()
	contents := `int_division_yields_float = false`
	if err := os.WriteFile(filepath.Join(dir, "windrift.dialect.toml"), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dialect != "postgres" {
		t.Errorf("dialect = %q, want the default postgres fallback", cfg.Dialect)
	}
	if cfg.DefaultVarcharLength != 255 {
		t.Errorf("default varchar length = %d, want the default 255 fallback", cfg.DefaultVarcharLength)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "windrift.dialect.toml"), []byte("not valid = [toml"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed TOML")
	}
}
