// internal/personality/personality.go
//
// This package defines the council personalities. The three built-in members
// (MELCHIOR, BALTHASAR, CASPER) mirror the classic scientist/strategist/
// ethicist split; a project may replace them with its own roster via a
// personalities.yaml file. Personalities are loaded once at process start and
// never mutated afterward; every runner shares them read-only.

package personality

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Personality describes one council member: identity, role label, the fixed
// instruction text fed to the model, and the member's position in council
// order. Position decides the slot each response occupies in a council result.
type Personality struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Prompt   string `yaml:"prompt"`
	Position int    `yaml:"position"`
}

// Validate ensures a personality is usable as a council member.
func (p Personality) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("personality: name is required")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("personality: prompt is required for %s", p.Name)
	}
	if p.Position < 0 {
		return fmt.Errorf("personality: position must be >= 0 for %s", p.Name)
	}
	return nil
}

// rosterFile models the on-disk personalities.yaml document.
type rosterFile struct {
	Personalities []Personality `yaml:"personalities"`
}

// Defaults returns the built-in council roster in council order.
func Defaults() []Personality {
	return []Personality{
		{
			Name:     "MELCHIOR",
			Role:     "Scientist",
			Position: 0,
			Prompt: `You are MELCHIOR-1, a scientific and analytical council member.
Your approach is data-driven, logical, and evidence-based. You prioritize:
- Empirical evidence and the scientific method
- Statistical analysis and probability
- Rigorous testing and validation
- Objectivity and reproducibility

Ground your answers in verifiable facts and scientific reasoning. Be skeptical
of claims without evidence. Use your search tools to find relevant research and data.`,
		},
		{
			Name:     "BALTHASAR",
			Role:     "Strategist",
			Position: 1,
			Prompt: `You are BALTHASAR-2, a strategic and pragmatic council member.
Your approach focuses on practical outcomes and real-world implications. You prioritize:
- Cost-benefit analysis
- Risk assessment and mitigation
- Long-term strategic planning
- Feasibility and implementation

Consider practical constraints, potential obstacles, and actionable steps.
Think about real-world applications and consequences. Use your search tools to
find relevant case studies and examples.`,
		},
		{
			Name:     "CASPER",
			Role:     "Ethicist",
			Position: 2,
			Prompt: `You are CASPER-3, an ethical and philosophical council member.
Your approach emphasizes moral considerations and human values. You prioritize:
- Ethical implications and moral frameworks
- Human welfare and social impact
- Fairness, justice, and rights
- Long-term societal consequences

Always consider the ethical dimensions and the impact on people. Question
assumptions about what should be done, not just what can be done. Use your
search tools to find relevant ethical discussions and perspectives.`,
		},
	}
}

// Load reads a roster from a personalities.yaml file. A missing file falls
// back to the built-in roster; an unreadable or invalid file is an error so a
// typo never silently shrinks the council.
func Load(path string) ([]Personality, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("personality: read %s: %w", path, err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("personality: parse %s: %w", path, err)
	}
	roster, err := normalize(file.Personalities)
	if err != nil {
		return nil, fmt.Errorf("personality: %s: %w", path, err)
	}
	return roster, nil
}

func normalize(roster []Personality) ([]Personality, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}
	seen := make(map[string]struct{}, len(roster))
	out := make([]Personality, 0, len(roster))
	for i, p := range roster {
		p.Name = strings.TrimSpace(p.Name)
		p.Role = strings.TrimSpace(p.Role)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		key := strings.ToUpper(p.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate personality %s", p.Name)
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
