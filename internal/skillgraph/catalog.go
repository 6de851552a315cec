package skillgraph

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of a skill set.
type Catalog struct {
	Skills []Skill `yaml:"skills"`
}

// LoadCatalog parses a YAML catalog, applies defaults and validates it.
func LoadCatalog(r io.Reader) ([]Skill, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i := range c.Skills {
		if c.Skills[i].Status == "" {
			c.Skills[i].Status = StatusDraft
		}
		if c.Skills[i].Difficulty == 0 {
			c.Skills[i].Difficulty = 1
		}
	}
	if err := Validate(c.Skills); err != nil {
		return nil, err
	}
	return c.Skills, nil
}
