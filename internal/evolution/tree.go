package evolution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"prokaryote/internal/logging"
)

// TreeType identifies which of the two trees a skill lives in.
type TreeType string

const (
	TreeGeneral TreeType = "general"
	TreeDomain  TreeType = "domain"
	// TreeNone is the sentinel returned when nothing is evolvable.
	TreeNone TreeType = "none"
)

// OptimizationRecord is one entry of a tree's optimizer history.
type OptimizationRecord struct {
	Timestamp    string       `json:"timestamp"`
	TriggerSkill string       `json:"trigger_skill"`
	TriggerLevel int          `json:"trigger_level"`
	Changes      []TreeChange `json:"changes"`
}

// TreeChange describes a single optimizer mutation.
type TreeChange struct {
	Type    string `json:"type"` // add_skill
	SkillID string `json:"skill_id"`
	Reason  string `json:"reason,omitempty"`
}

// SkillTree is the persisted mapping of skill id to skill, plus free-form
// optimizer history.
type SkillTree struct {
	Skills              map[string]*Skill    `json:"skills"`
	OptimizationHistory []OptimizationRecord `json:"optimization_history,omitempty"`
	LastOptimized       string               `json:"last_optimized,omitempty"`
}

// NewSkillTree returns an empty tree.
func NewSkillTree() *SkillTree {
	return &SkillTree{Skills: make(map[string]*Skill)}
}

// Levels returns the id -> level mapping used by unlock conditions.
func (t *SkillTree) Levels() map[string]int {
	levels := make(map[string]int, len(t.Skills))
	for id, s := range t.Skills {
		levels[id] = s.Level
	}
	return levels
}

// Unlocked returns the ids of all unlocked skills.
func (t *SkillTree) Unlocked() []string {
	var ids []string
	for id, s := range t.Skills {
		if s.Unlocked {
			ids = append(ids, id)
		}
	}
	return ids
}

// LevelSum returns the total level across all skills in the tree.
func (t *SkillTree) LevelSum() int {
	sum := 0
	for _, s := range t.Skills {
		sum += s.Level
	}
	return sum
}

// TreeStore reads and writes the two tree files. Each save is a full-file
// rewrite; a missing or corrupt file loads as an empty tree.
type TreeStore struct {
	generalPath string
	domainPath  string
}

// NewTreeStore creates a store over the given tree file paths.
func NewTreeStore(generalPath, domainPath string) *TreeStore {
	return &TreeStore{generalPath: generalPath, domainPath: domainPath}
}

// Path returns the file backing the given tree.
func (ts *TreeStore) Path(tree TreeType) string {
	if tree == TreeDomain {
		return ts.domainPath
	}
	return ts.generalPath
}

// Load reads one tree. Availability wins over strictness: any read or
// parse failure yields an empty tree.
func (ts *TreeStore) Load(tree TreeType) *SkillTree {
	path := ts.Path(tree)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.StorageWarn("failed to read %s tree at %s: %v", tree, path, err)
		}
		return NewSkillTree()
	}

	var t SkillTree
	if err := json.Unmarshal(data, &t); err != nil {
		logging.StorageWarn("corrupt %s tree at %s, resetting: %v", tree, path, err)
		return NewSkillTree()
	}
	if t.Skills == nil {
		t.Skills = make(map[string]*Skill)
	}
	return &t
}

// Save rewrites one tree file in full.
func (ts *TreeStore) Save(tree TreeType, t *SkillTree) error {
	path := ts.Path(tree)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tree directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s tree: %w", tree, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s tree: %w", tree, err)
	}

	logging.Storage("saved %s tree (%d skills) to %s", tree, len(t.Skills), path)
	return nil
}
