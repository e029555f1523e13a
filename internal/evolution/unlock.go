package evolution

import "prokaryote/internal/logging"

// ImplicitUnlockLevel is the prerequisite level that unlocks a skill when
// no explicit unlock condition is given.
const ImplicitUnlockLevel = 5

// UnlockEligible reports whether a locked skill's gate is currently open.
// Precedence: no prerequisites -> open; explicit condition -> parsed
// expression over levels; otherwise every prerequisite >= the implicit
// threshold. Unlocked skills are never re-checked.
func UnlockEligible(skill *Skill, levels map[string]int) bool {
	if skill.Unlocked {
		return false
	}
	if len(skill.Prerequisites) == 0 {
		return true
	}
	if skill.UnlockCondition != "" {
		return EvalCondition(skill.UnlockCondition, levels)
	}
	for _, prereq := range skill.Prerequisites {
		if levels[prereq] < ImplicitUnlockLevel {
			return false
		}
	}
	return true
}

// CheckAndUnlock flips every eligible locked skill in the tree to unlocked
// and returns the newly unlocked ids. extraLevels supplies levels of skills
// outside this tree (the sibling tree) for cross-tree unlock conditions;
// same-tree levels win on collision. Unlocking is monotonic: this is the
// only mutation performed here, and nothing is ever re-locked.
func CheckAndUnlock(tree *SkillTree, extraLevels map[string]int) []string {
	levels := make(map[string]int, len(tree.Skills)+len(extraLevels))
	for id, level := range extraLevels {
		levels[id] = level
	}
	for id, s := range tree.Skills {
		levels[id] = s.Level
	}

	var unlocked []string
	for id, s := range tree.Skills {
		if UnlockEligible(s, levels) {
			s.Unlocked = true
			unlocked = append(unlocked, id)
			logging.Unlock("unlocked skill %s (%s)", id, s.Name)
		}
	}
	return unlocked
}
