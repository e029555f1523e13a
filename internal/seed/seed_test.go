package seed

import (
	"os"
	"path/filepath"
	"testing"

	"prokaryote/internal/evolution"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidSeed(t *testing.T) {
	path := writeSeed(t, `
general:
  - id: web_search
    name: Web Search
    category: knowledge_acquisition
    tier: basic
    unlocked: true
  - id: web_scraping
    name: Web Scraping
    category: world_interaction
    tier: intermediate
    prerequisites: [web_search]
    unlock_condition: "web_search >= 5"
domain:
  - id: legal_research
    name: Legal Research
    category: knowledge_acquisition
    tier: basic
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.General) != 2 || len(s.Domain) != 1 {
		t.Errorf("seed sizes = %d/%d, want 2/1", len(s.General), len(s.Domain))
	}

	general, domain := s.Trees()
	if !general.Skills["web_search"].Unlocked {
		t.Error("seeded unlocked flag lost")
	}
	if general.Skills["web_scraping"].UnlockCondition != "web_search >= 5" {
		t.Error("seeded unlock condition lost")
	}
	if domain.Skills["legal_research"].Tier != evolution.TierBasic {
		t.Error("seeded domain tier lost")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"duplicate id", `
general:
  - {id: a, tier: basic}
  - {id: a, tier: basic}
`},
		{"unknown tier", `
general:
  - {id: a, tier: legendary}
`},
		{"dangling prerequisite", `
general:
  - {id: a, tier: basic, prerequisites: [ghost]}
`},
		{"malformed unlock condition", `
general:
  - {id: a, tier: basic}
  - {id: b, tier: basic, prerequisites: [a], unlock_condition: "a >="}
`},
		{"level above ceiling", `
general:
  - {id: a, tier: basic, level: 21}
`},
		{"empty id", `
general:
  - {tier: basic}
`},
	}

	for _, tc := range cases {
		if _, err := Load(writeSeed(t, tc.yaml)); err == nil {
			t.Errorf("%s: Load accepted invalid seed", tc.name)
		}
	}
}

func TestValidateCrossTreePrerequisite(t *testing.T) {
	// A domain skill may require a general skill.
	path := writeSeed(t, `
general:
  - {id: base, tier: basic, unlocked: true}
domain:
  - {id: special, tier: basic, prerequisites: [base]}
`)
	if _, err := Load(path); err != nil {
		t.Errorf("cross-tree prerequisite rejected: %v", err)
	}
}

func TestApplyRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := evolution.NewTreeStore(
		filepath.Join(dir, "general.json"),
		filepath.Join(dir, "domain.json"),
	)

	if err := Apply(Default(), store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	general := store.Load(evolution.TreeGeneral)
	if len(general.Skills) == 0 {
		t.Fatal("default seed produced an empty general tree")
	}

	// Mutate, then re-apply: progress must survive.
	general.Skills["web_search"].Level = 9
	if err := store.Save(evolution.TreeGeneral, general); err != nil {
		t.Fatal(err)
	}
	if err := Apply(Default(), store); err != nil {
		t.Fatalf("re-Apply: %v", err)
	}
	if got := store.Load(evolution.TreeGeneral).Skills["web_search"].Level; got != 9 {
		t.Errorf("re-seeding reset level to %d", got)
	}
}

func TestDefaultSeedIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("built-in seed invalid: %v", err)
	}

	// At least one skill per category, and at least one unlocked root.
	categories := make(map[string]bool)
	unlockedRoots := 0
	for _, spec := range s.General {
		categories[spec.Category] = true
		if spec.Unlocked && len(spec.Prerequisites) == 0 {
			unlockedRoots++
		}
	}
	for _, want := range []string{
		evolution.CategoryKnowledgeAcquisition,
		evolution.CategoryWorldInteraction,
		evolution.CategorySelfEvolution,
	} {
		if !categories[want] {
			t.Errorf("default seed missing category %s", want)
		}
	}
	if unlockedRoots == 0 {
		t.Error("default seed has no unlocked root skill")
	}
}
