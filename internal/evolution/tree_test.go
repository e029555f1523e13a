package evolution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestStore(t *testing.T) *TreeStore {
	t.Helper()
	dir := t.TempDir()
	return NewTreeStore(
		filepath.Join(dir, "trees", "general.json"),
		filepath.Join(dir, "trees", "domain.json"),
	)
}

func TestTreeStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	tree := NewSkillTree()
	tree.Skills["web_scraping"] = &Skill{
		Name:          "Web Scraping",
		Category:      CategoryWorldInteraction,
		Tier:          TierIntermediate,
		Level:         7,
		Unlocked:      true,
		Prerequisites: []string{"http_basics"},
		Proficiency:   0.4,
	}
	tree.Skills["http_basics"] = &Skill{
		Name:            "HTTP Basics",
		Category:        CategoryWorldInteraction,
		Tier:            TierBasic,
		Level:           12,
		MaxLevel:        15,
		Unlocked:        true,
		Prerequisites:   []string{},
		UnlockCondition: "bootstrap >= 1",
	}

	if err := store.Save(TreeGeneral, tree); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded := store.Load(TreeGeneral)

	if diff := cmp.Diff(tree, loaded); diff != "" {
		t.Errorf("tree changed across save/load (-want +got):\n%s", diff)
	}
}

func TestTreeStoreMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)
	tree := store.Load(TreeDomain)
	if tree == nil || len(tree.Skills) != 0 {
		t.Errorf("missing file should load as empty tree, got %+v", tree)
	}
}

func TestTreeStoreCorruptFileIsEmpty(t *testing.T) {
	store := newTestStore(t)
	writeFile(t, store.Path(TreeGeneral), `{"skills": [1,2,3]}`)

	tree := store.Load(TreeGeneral)
	if len(tree.Skills) != 0 {
		t.Errorf("corrupt file should load as empty tree, got %d skills", len(tree.Skills))
	}
}

func TestTreeStorePathsAreIndependent(t *testing.T) {
	store := newTestStore(t)

	general := NewSkillTree()
	general.Skills["g"] = testSkill(TierBasic, 1, true)
	domain := NewSkillTree()
	domain.Skills["d1"] = testSkill(TierBasic, 2, true)
	domain.Skills["d2"] = testSkill(TierBasic, 3, false)

	if err := store.Save(TreeGeneral, general); err != nil {
		t.Fatalf("save general: %v", err)
	}
	if err := store.Save(TreeDomain, domain); err != nil {
		t.Fatalf("save domain: %v", err)
	}

	if n := len(store.Load(TreeGeneral).Skills); n != 1 {
		t.Errorf("general tree has %d skills, want 1", n)
	}
	if n := len(store.Load(TreeDomain).Skills); n != 2 {
		t.Errorf("domain tree has %d skills, want 2", n)
	}
}

func TestTreeLevelAccessors(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"a": testSkill(TierBasic, 4, true),
		"b": testSkill(TierBasic, 6, false),
	})

	levels := tree.Levels()
	if levels["a"] != 4 || levels["b"] != 6 {
		t.Errorf("Levels() = %v", levels)
	}
	if got := tree.LevelSum(); got != 10 {
		t.Errorf("LevelSum() = %d, want 10", got)
	}
	if got := tree.Unlocked(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Unlocked() = %v, want [a]", got)
	}
}
