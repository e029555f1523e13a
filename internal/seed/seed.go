// Package seed bootstraps the two skill trees from a YAML seed file, or
// from the built-in starter tree when no seed is given. Seeding is an init
// time operation; it refuses to overwrite trees that already have skills.
package seed

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"prokaryote/internal/evolution"
	"prokaryote/internal/logging"
)

// SkillSpec is one skill entry of a seed file.
type SkillSpec struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Category        string   `yaml:"category"`
	Tier            string   `yaml:"tier"`
	Level           int      `yaml:"level"`
	MaxLevel        int      `yaml:"max_level"`
	Unlocked        bool     `yaml:"unlocked"`
	Prerequisites   []string `yaml:"prerequisites"`
	UnlockCondition string   `yaml:"unlock_condition"`
	Description     string   `yaml:"description"`
}

// Seed is the YAML seed file layout.
type Seed struct {
	General []SkillSpec `yaml:"general"`
	Domain  []SkillSpec `yaml:"domain"`
}

// Load reads and validates a seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the seed for duplicate ids, unknown tiers, dangling
// prerequisites, malformed unlock conditions, and levels above ceilings.
func (s *Seed) Validate() error {
	ids := make(map[string]bool)
	for _, list := range [][]SkillSpec{s.General, s.Domain} {
		for _, spec := range list {
			if spec.ID == "" {
				return fmt.Errorf("seed skill with empty id")
			}
			if ids[spec.ID] {
				return fmt.Errorf("duplicate skill id %q", spec.ID)
			}
			ids[spec.ID] = true
		}
	}

	for _, list := range [][]SkillSpec{s.General, s.Domain} {
		for _, spec := range list {
			tier := evolution.Tier(spec.Tier)
			if !tier.Valid() {
				return fmt.Errorf("skill %q: unknown tier %q", spec.ID, spec.Tier)
			}
			for _, prereq := range spec.Prerequisites {
				if !ids[prereq] {
					return fmt.Errorf("skill %q: unknown prerequisite %q", spec.ID, prereq)
				}
			}
			if spec.UnlockCondition != "" {
				if err := evolution.CheckCondition(spec.UnlockCondition); err != nil {
					return fmt.Errorf("skill %q: bad unlock condition: %w", spec.ID, err)
				}
			}
			ceiling := spec.MaxLevel
			if ceiling == 0 {
				ceiling = tier.DefaultCeiling()
			}
			if spec.Level < 0 || spec.Level > ceiling {
				return fmt.Errorf("skill %q: level %d outside [0,%d]", spec.ID, spec.Level, ceiling)
			}
		}
	}
	return nil
}

// Trees materializes the seed into a general and a domain tree.
func (s *Seed) Trees() (general, domain *evolution.SkillTree) {
	return buildTree(s.General), buildTree(s.Domain)
}

func buildTree(specs []SkillSpec) *evolution.SkillTree {
	tree := evolution.NewSkillTree()
	for _, spec := range specs {
		prereqs := spec.Prerequisites
		if prereqs == nil {
			prereqs = []string{}
		}
		tree.Skills[spec.ID] = &evolution.Skill{
			Name:            spec.Name,
			Category:        spec.Category,
			Tier:            evolution.Tier(spec.Tier),
			Level:           spec.Level,
			MaxLevel:        spec.MaxLevel,
			Unlocked:        spec.Unlocked,
			Prerequisites:   prereqs,
			UnlockCondition: spec.UnlockCondition,
		}
	}
	return tree
}

// Apply writes the seeded trees through the store. A tree that already has
// skills is left alone so re-running init cannot destroy progress.
func Apply(s *Seed, store *evolution.TreeStore) error {
	general, domain := s.Trees()

	for _, target := range []struct {
		tt   evolution.TreeType
		tree *evolution.SkillTree
	}{
		{evolution.TreeGeneral, general},
		{evolution.TreeDomain, domain},
	} {
		existing := store.Load(target.tt)
		if len(existing.Skills) > 0 {
			logging.Storage("%s tree already has %d skills, skipping seed",
				target.tt, len(existing.Skills))
			continue
		}
		if err := store.Save(target.tt, target.tree); err != nil {
			return fmt.Errorf("failed to seed %s tree: %w", target.tt, err)
		}
		logging.Storage("seeded %s tree with %d skills", target.tt, len(target.tree.Skills))
	}
	return nil
}

// Default returns the built-in starter seed: a small general tree covering
// the three skill categories, and an empty domain tree for the hosting
// application to specialize.
func Default() *Seed {
	return &Seed{
		General: []SkillSpec{
			{
				ID: "web_search", Name: "Web Search",
				Category: evolution.CategoryKnowledgeAcquisition,
				Tier:     string(evolution.TierBasic), Unlocked: true,
				Description: "Query search engines and rank results",
			},
			{
				ID: "text_analysis", Name: "Text Analysis",
				Category: evolution.CategoryKnowledgeAcquisition,
				Tier:     string(evolution.TierBasic), Unlocked: true,
				Description: "Extract structure and meaning from documents",
			},
			{
				ID: "web_scraping", Name: "Web Scraping",
				Category:      evolution.CategoryWorldInteraction,
				Tier:          string(evolution.TierIntermediate),
				Prerequisites: []string{"web_search"},
				Description:   "Fetch and parse live web pages",
			},
			{
				ID: "api_calls", Name: "API Calls",
				Category:      evolution.CategoryWorldInteraction,
				Tier:          string(evolution.TierIntermediate),
				Prerequisites: []string{"web_search"},
				Description:   "Interact with external services over HTTP APIs",
			},
			{
				ID: "code_generation", Name: "Code Generation",
				Category:        evolution.CategorySelfEvolution,
				Tier:            string(evolution.TierAdvanced),
				Prerequisites:   []string{"text_analysis"},
				UnlockCondition: "text_analysis >= 8",
				Description:     "Generate and refine source code for new capabilities",
			},
			{
				ID: "self_reflection", Name: "Self Reflection",
				Category:        evolution.CategorySelfEvolution,
				Tier:            string(evolution.TierAdvanced),
				Prerequisites:   []string{"code_generation"},
				UnlockCondition: "code_generation >= 10",
				Description:     "Analyze own failures and adjust strategy",
			},
		},
	}
}

// IDs returns every skill id in the seed, sorted.
func (s *Seed) IDs() []string {
	var ids []string
	for _, list := range [][]SkillSpec{s.General, s.Domain} {
		for _, spec := range list {
			ids = append(ids, spec.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
