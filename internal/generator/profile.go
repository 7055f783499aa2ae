package generator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the on-disk form of a Config, loaded from a YAML file named by
// the CLI's --profile flag. Field tags and the yaml.Unmarshal round-trip
// follow internal/testhelper/examples_test.go's fixture-loading pattern in
// the teacher repo, the only place tinySQL itself parses YAML.
type Profile struct {
	Connections       int      `yaml:"connections"`
	Objects           int      `yaml:"objects"`
	Tables            []string `yaml:"tables"`
	Transactions      int      `yaml:"transactions"`
	AbortRate         float64  `yaml:"abort_rate"`
	WriteRate         float64  `yaml:"write_rate"`
	PredicateReadRate float64  `yaml:"predicate_read_rate"`
	ForUpdate         bool     `yaml:"for_update"`
	MinTxnSize        int      `yaml:"min_txn_size"`
	MaxTxnSize        int      `yaml:"max_txn_size"`
}

// LoadProfile reads a YAML workload profile from path.
func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return p, nil
}

// Apply overlays the non-zero fields of p onto cfg, letting a profile file
// override only the settings it mentions while flags/defaults fill the rest.
func (p Profile) Apply(cfg Config) Config {
	if p.Connections != 0 {
		cfg.Connections = p.Connections
	}
	if p.Objects != 0 {
		cfg.Objects = p.Objects
	}
	if len(p.Tables) != 0 {
		cfg.Tables = p.Tables
	}
	if p.Transactions != 0 {
		cfg.TransactionLimit = p.Transactions
	}
	if p.AbortRate != 0 {
		cfg.AbortRate = p.AbortRate
	}
	if p.WriteRate != 0 {
		cfg.WriteRate = p.WriteRate
	}
	if p.PredicateReadRate != 0 {
		cfg.PredicateReadRate = p.PredicateReadRate
	}
	if p.ForUpdate {
		cfg.ForUpdate = p.ForUpdate
	}
	if p.MinTxnSize != 0 {
		cfg.MinTxnSize = p.MinTxnSize
	}
	if p.MaxTxnSize != 0 {
		cfg.MaxTxnSize = p.MaxTxnSize
	}
	return cfg
}
