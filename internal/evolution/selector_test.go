package evolution

import (
	"math/rand"
	"testing"
)

func seededSelector(seed int64) *Selector {
	return NewSelector(DefaultPolicy(), rand.New(rand.NewSource(seed)))
}

func TestEvolvableSkillsFilters(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"ok":     testSkill(TierBasic, 5, true),
		"locked": testSkill(TierBasic, 5, false),
		"capped": testSkill(TierBasic, 20, true),
	})

	ids := EvolvableSkills(tree, nil)
	if len(ids) != 1 || ids[0] != "ok" {
		t.Errorf("evolvable = %v, want [ok]", ids)
	}
}

func TestScoreOrdering(t *testing.T) {
	s := seededSelector(1)

	low := testSkill(TierBasic, 2, true)
	high := testSkill(TierBasic, 15, true)
	if s.Score(low, 0, 0) >= s.Score(high, 0, 0) {
		t.Error("a lower-level skill must score lower (more urgent)")
	}

	// Same relative progress (half the ceiling): the lower tier wins the
	// tie-break.
	basic := testSkill(TierBasic, 10, true)
	advanced := testSkill(TierAdvanced, 25, true)
	if s.Score(basic, 0, 0) >= s.Score(advanced, 0, 0) {
		t.Error("tier order must break progress ties in favor of lower tiers")
	}

	// Penalty pushes down the ranking, boost pulls up.
	if s.Score(low, 0.4, 0) <= s.Score(low, 0, 0) {
		t.Error("failure penalty must worsen the score")
	}
	if s.Score(low, 0, 0.3) >= s.Score(low, 0, 0) {
		t.Error("prerequisite boost must improve the score")
	}
}

func TestSelectEmptyTree(t *testing.T) {
	s := seededSelector(1)
	if _, ok := s.Select(NewSkillTree(), nil); ok {
		t.Error("selecting from an empty tree must report no candidate")
	}
}

func TestSelectSingleCandidate(t *testing.T) {
	s := seededSelector(1)
	tree := treeOf(map[string]*Skill{"only": testSkill(TierBasic, 3, true)})

	for i := 0; i < 20; i++ {
		id, ok := s.Select(tree, nil)
		if !ok || id != "only" {
			t.Fatalf("Select = %q, %v; want only, true", id, ok)
		}
	}
}

func TestSelectStaysWithinTopK(t *testing.T) {
	s := seededSelector(42)
	tree := treeOf(map[string]*Skill{
		"a": testSkill(TierBasic, 1, true),
		"b": testSkill(TierBasic, 2, true),
		"c": testSkill(TierBasic, 3, true),
		"d": testSkill(TierBasic, 18, true),
		"e": testSkill(TierBasic, 19, true),
	})

	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		id, ok := s.Select(tree, nil)
		if !ok {
			t.Fatal("no candidate selected")
		}
		seen[id]++
	}

	for _, id := range []string{"d", "e"} {
		if seen[id] != 0 {
			t.Errorf("near-capped skill %s selected %d times, want never", id, seen[id])
		}
	}
	// Anti-starvation: every top-3 candidate shows up over 200 draws.
	for _, id := range []string{"a", "b", "c"} {
		if seen[id] == 0 {
			t.Errorf("top candidate %s was never selected", id)
		}
	}
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	tree := treeOf(map[string]*Skill{
		"a": testSkill(TierBasic, 1, true),
		"b": testSkill(TierBasic, 2, true),
		"c": testSkill(TierBasic, 3, true),
	})

	var first []string
	s := seededSelector(7)
	for i := 0; i < 10; i++ {
		id, _ := s.Select(tree, nil)
		first = append(first, id)
	}

	s = seededSelector(7)
	for i := 0; i < 10; i++ {
		id, _ := s.Select(tree, nil)
		if id != first[i] {
			t.Fatalf("draw %d diverged: %q vs %q under the same seed", i, id, first[i])
		}
	}
}

func TestSelectSkipsCoolingSkills(t *testing.T) {
	s := seededSelector(1)
	ft := newTestTracker(t)
	tree := treeOf(map[string]*Skill{
		"cooling": testSkill(TierBasic, 1, true),
		"other":   testSkill(TierBasic, 10, true),
	})
	for i := 0; i < 3; i++ {
		ft.RecordFailure("cooling", 1, "", tree)
	}

	for i := 0; i < 20; i++ {
		id, ok := s.Select(tree, ft)
		if !ok || id != "other" {
			t.Fatalf("Select = %q, %v; cooling skill must be excluded", id, ok)
		}
	}
}

func TestSelectPenaltyDemotesFailingSkill(t *testing.T) {
	s := seededSelector(3)
	ft := newTestTracker(t)
	tree := treeOf(map[string]*Skill{
		"failing": testSkill(TierBasic, 1, true),
		"b":       testSkill(TierBasic, 2, true),
		"c":       testSkill(TierBasic, 3, true),
		"d":       testSkill(TierBasic, 4, true),
	})
	// Two failures: selectable, but 0.4 penalty drops it out of the top 3.
	ft.RecordFailure("failing", 1, "", tree)
	ft.RecordFailure("failing", 1, "", tree)

	for i := 0; i < 100; i++ {
		id, _ := s.Select(tree, ft)
		if id == "failing" {
			t.Fatal("penalized skill selected despite cheaper alternatives")
		}
	}
}

func TestSelectBoostPromotesPrerequisite(t *testing.T) {
	s := seededSelector(5)
	ft := newTestTracker(t)
	tree := treeOf(map[string]*Skill{
		"base": testSkill(TierBasic, 9, true), // worst raw progress among candidates
		"top":  testSkill(TierBasic, 5, true),
		"a":    testSkill(TierBasic, 1, true),
		"b":    testSkill(TierBasic, 1, true),
		"c":    testSkill(TierBasic, 5, true),
	})
	tree.Skills["top"].Prerequisites = []string{"base"}

	for i := 0; i < 3; i++ {
		ft.RecordFailure("top", 5, "", tree)
	}

	// base: 9/20 - 0.3 boost = 0.15, beating c at 5/20 = 0.25. The boost
	// lifts base from dead last into the top 3; top itself is cooling.
	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		id, _ := s.Select(tree, ft)
		seen[id]++
	}
	if seen["base"] == 0 {
		t.Error("boosted prerequisite never selected")
	}
	if seen["top"] != 0 {
		t.Error("cooling skill selected")
	}
}

func TestPickTreeRespectsPriorityExtremes(t *testing.T) {
	s := seededSelector(1)

	for i := 0; i < 50; i++ {
		if got := s.PickTree(Priority{General: 1, Domain: 0}); got != TreeGeneral {
			t.Fatal("priority 1/0 must always pick the general tree")
		}
		if got := s.PickTree(Priority{General: 0, Domain: 1}); got != TreeDomain {
			t.Fatal("priority 0/1 must always pick the domain tree")
		}
	}
}
