// Package dialectcfg loads dialect knobs (spec §9 open questions): behavior
// left unspecified by the grammar itself (integer division, synthetic
// primary-key naming, default column widths) is read from
// windrift.dialect.toml rather than hard-coded, the same "config lives
// outside the declaration, not inside it" split the runtime config layer
// uses for forge.runtime.toml. Only IntDivisionYieldsFloat is read
// elsewhere in this module, by the constant folder; the other knobs are
// loaded and defaulted but no resolver or checker reads them.
package dialectcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every dialect-dependent knob.
type Config struct {
	// Dialect names the target SQL dialect ("postgres", "mysql", "sqlite").
	// Nothing in this module reads it: parsing, folding and field
	// resolution behave the same for every value.
	Dialect string `toml:"dialect"`

	// IntDivisionYieldsFloat selects the spec §9(a) behavior for the `/`
	// operator between two integer literals: true folds to a float
	// result, false performs truncating integer division.
	IntDivisionYieldsFloat bool `toml:"int_division_yields_float"`

	// SyntheticPrimaryKeyColumn names a column for synthesized primary
	// keys. The schema resolver does not read it and synthesizes no
	// column: entity.Accumulator.Achieve rejects an entity that declares
	// no primary-key field whatever this holds.
	SyntheticPrimaryKeyColumn string `toml:"synthetic_primary_key_column"`

	// DefaultVarcharLength is a default VARCHAR width. No resolver or DDL
	// renderer reads it.
	DefaultVarcharLength int `toml:"default_varchar_length"`
}

const configFileName = "windrift.dialect.toml"

// Load reads windrift.dialect.toml from dir, falling back to Default()
// when the file does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFileName, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in dialect configuration: Postgres, integer
// division folding to float (the spec's stated default), no synthetic
// primary keys, and a conservative VARCHAR width.
func Default() *Config {
	return &Config{
		Dialect:                   "postgres",
		IntDivisionYieldsFloat:    true,
		DefaultVarcharLength:      255,
		SyntheticPrimaryKeyColumn: "",
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Dialect == "" {
		c.Dialect = d.Dialect
	}
	if c.DefaultVarcharLength == 0 {
		c.DefaultVarcharLength = d.DefaultVarcharLength
	}
}
