package evolution

import (
	"sort"
	"testing"
)

func TestUnlockNoPrerequisites(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"root": testSkill(TierBasic, 0, false),
	})

	unlocked := CheckAndUnlock(tree, nil)
	if len(unlocked) != 1 || unlocked[0] != "root" {
		t.Errorf("unlocked = %v, want [root]", unlocked)
	}
	if !tree.Skills["root"].Unlocked {
		t.Error("skill without prerequisites must unlock immediately")
	}
}

func TestUnlockImplicitThreshold(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"base":  testSkill(TierBasic, 4, true),
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"base"}

	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 0 {
		t.Errorf("unlocked %v with prerequisite at level 4", unlocked)
	}

	tree.Skills["base"].Level = 5
	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 1 {
		t.Error("prerequisite at level 5 must open the implicit gate")
	}
}

func TestUnlockAllPrerequisitesRequired(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"p1":    testSkill(TierBasic, 10, true),
		"p2":    testSkill(TierBasic, 4, true),
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"p1", "p2"}

	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 0 {
		t.Errorf("unlocked %v with one prerequisite below threshold", unlocked)
	}
}

func TestUnlockExplicitConditionOverridesImplicit(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"base":  testSkill(TierBasic, 7, true),
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"base"}
	tree.Skills["gated"].UnlockCondition = "base >= 10"

	// Implicit rule (>= 5) would pass, but the explicit condition governs.
	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 0 {
		t.Errorf("unlocked %v despite unmet explicit condition", unlocked)
	}

	tree.Skills["base"].Level = 10
	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 1 {
		t.Error("explicit condition at threshold must unlock")
	}
}

func TestUnlockMalformedConditionNeverUnlocks(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"base":  testSkill(TierBasic, 50, true),
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"base"}
	tree.Skills["gated"].UnlockCondition = "base >= "

	if unlocked := CheckAndUnlock(tree, nil); len(unlocked) != 0 {
		t.Errorf("malformed condition unlocked %v", unlocked)
	}
}

func TestUnlockCrossTreeLevels(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"sibling_skill"}
	tree.Skills["gated"].UnlockCondition = "sibling_skill >= 8"

	if unlocked := CheckAndUnlock(tree, map[string]int{"sibling_skill": 7}); len(unlocked) != 0 {
		t.Error("unlocked below the cross-tree threshold")
	}
	if unlocked := CheckAndUnlock(tree, map[string]int{"sibling_skill": 8}); len(unlocked) != 1 {
		t.Error("cross-tree levels must satisfy unlock conditions")
	}
}

func TestUnlockSameTreeLevelWinsCollision(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"shared": testSkill(TierBasic, 9, true),
		"gated":  testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].UnlockCondition = "shared >= 9"
	tree.Skills["gated"].Prerequisites = []string{"shared"}

	// The sibling tree claims "shared" is lower; the local level governs.
	if unlocked := CheckAndUnlock(tree, map[string]int{"shared": 0}); len(unlocked) != 1 {
		t.Error("same-tree level must win over the sibling tree's")
	}
}

func TestUnlockIsMonotonicAndIdempotent(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"base":  testSkill(TierBasic, 5, true),
		"gated": testSkill(TierBasic, 0, false),
	})
	tree.Skills["gated"].Prerequisites = []string{"base"}

	first := CheckAndUnlock(tree, nil)
	if len(first) != 1 {
		t.Fatalf("first pass unlocked %v", first)
	}

	// Dropping the prerequisite afterwards must not re-lock anything, and
	// a second pass reports no new unlocks.
	tree.Skills["base"].Level = 0
	second := CheckAndUnlock(tree, nil)
	if len(second) != 0 {
		t.Errorf("second pass reported %v as newly unlocked", second)
	}
	if !tree.Skills["gated"].Unlocked {
		t.Error("unlocking must be monotonic")
	}
}

func TestUnlockCascadeAcrossPasses(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"a": testSkill(TierBasic, 5, true),
		"b": testSkill(TierBasic, 5, false),
		"c": testSkill(TierBasic, 0, false),
	})
	tree.Skills["b"].Prerequisites = []string{"a"}
	tree.Skills["c"].Prerequisites = []string{"b"}

	// b's level already satisfies c's gate, but c only sees it once the
	// same pass evaluates both; a single pass resolves the whole chain
	// because eligibility reads levels, not unlock flags.
	unlocked := CheckAndUnlock(tree, nil)
	sort.Strings(unlocked)
	if len(unlocked) != 2 || unlocked[0] != "b" || unlocked[1] != "c" {
		t.Errorf("unlocked = %v, want [b c]", unlocked)
	}
}
