package languages

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk shape of a language table.
//
//	default: hi
//	languages:
//	  - code: hi
//	    instruction: "Language: Respond in simple, clear Hindi."
//	    refusal: "..."
type tableFile struct {
	Default   string  `yaml:"default"`
	Languages []Entry `yaml:"languages"`
}

// Load reads a language table from a YAML file and validates it. Every entry
// must carry a code, an instruction and a refusal text, and the declared
// default must exist; otherwise Load fails so startup can abort.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language table: %w", err)
	}

	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse language table %s: %w", path, err)
	}

	defaultCode := tf.Default
	if defaultCode == "" {
		defaultCode = DefaultCode
	}

	r, err := newRegistry(tf.Languages, defaultCode)
	if err != nil {
		return nil, fmt.Errorf("invalid language table %s: %w", path, err)
	}
	return r, nil
}
