package skillgraph

// Status is the publication lifecycle of a skill.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Skill is a node in a per-subject, per-domain skill graph.
type Skill struct {
	ID             string   `yaml:"id" json:"id"`
	Subject        string   `yaml:"subject" json:"subject"`
	Domain         string   `yaml:"domain" json:"domain"`
	NameKey        string   `yaml:"name_key" json:"name_key"`
	DescriptionKey string   `yaml:"description_key" json:"description_key"`
	Description    string   `yaml:"description" json:"description"`
	Difficulty     int      `yaml:"difficulty" json:"difficulty"`
	SortOrder      int      `yaml:"sort_order" json:"sort_order"`
	Status         Status   `yaml:"status" json:"status"`
	Prerequisites  []string `yaml:"prerequisites" json:"prerequisites"`
}

// Published reports whether the skill can be served to learners.
func (s Skill) Published() bool {
	return s.Status == StatusPublished
}

// DisplayName returns the best human-readable label available. Translation
// of keys happens in the presentation layer.
func (s Skill) DisplayName() string {
	if s.NameKey != "" {
		return s.NameKey
	}
	return s.ID
}
