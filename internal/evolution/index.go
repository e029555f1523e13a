package evolution

// Stage is the agent's evolution stage, classified from the composite
// evolution index.
type Stage string

const (
	StageSprouting    Stage = "sprouting"
	StageGrowing      Stage = "growing"
	StageMaturing     Stage = "maturing"
	StageSpecializing Stage = "specializing"
)

// Stage thresholds over the 0-100 index.
const (
	growingThreshold      = 15
	maturingThreshold     = 40
	specializingThreshold = 70
)

// DisplayName returns the human-readable stage name.
func (s Stage) DisplayName() string {
	switch s {
	case StageSprouting:
		return "Sprouting"
	case StageGrowing:
		return "Growing"
	case StageMaturing:
		return "Maturing"
	case StageSpecializing:
		return "Specializing"
	}
	return string(s)
}

// StageForIndex classifies an index value into a stage.
func StageForIndex(index float64) Stage {
	switch {
	case index >= specializingThreshold:
		return StageSpecializing
	case index >= maturingThreshold:
		return StageMaturing
	case index >= growingThreshold:
		return StageGrowing
	}
	return StageSprouting
}

// IndexDetail carries the raw counts behind an EvolutionIndex.
type IndexDetail struct {
	TotalSkills    int `json:"total_skills"`
	UnlockedSkills int `json:"unlocked_skills"`
	LevelSum       int `json:"level_sum"`
	MaxLevelSum    int `json:"max_level_sum"`
	MasteredSkills int `json:"mastered_skills"`
}

// EvolutionIndex is the derived multi-dimensional progress metric.
// All four dimensions are in [0,1]; Index is in [0,100]. Never stored,
// always recomputed from the current tree pair.
type EvolutionIndex struct {
	Index   float64     `json:"index"`
	Breadth float64     `json:"breadth"`
	Depth   float64     `json:"depth"`
	Tier    float64     `json:"tier"`
	Mastery float64     `json:"mastery"`
	Detail  IndexDetail `json:"detail"`
}

// CalculateIndex reduces the tree pair to the four dimensions and their
// weighted composite:
//
//	breadth - unlocked / total
//	depth   - sum(level) / sum(ceiling), unlocked skills only
//	tier    - sum(tier weight) over unlocked, normalized by total * max weight
//	mastery - unlocked skills at >= 50% of ceiling / unlocked
func CalculateIndex(trees []*SkillTree, w IndexWeights) EvolutionIndex {
	var detail IndexDetail
	unlockedWeight := 0

	for _, tree := range trees {
		if tree == nil {
			continue
		}
		for _, s := range tree.Skills {
			detail.TotalSkills++
			if !s.Unlocked {
				continue
			}
			detail.UnlockedSkills++
			detail.LevelSum += s.Level
			detail.MaxLevelSum += s.Ceiling()
			unlockedWeight += s.Tier.Weight()
			if s.Mastered() {
				detail.MasteredSkills++
			}
		}
	}

	if detail.TotalSkills == 0 {
		return EvolutionIndex{Detail: detail}
	}

	breadth := float64(detail.UnlockedSkills) / float64(detail.TotalSkills)

	depth := 0.0
	if detail.MaxLevelSum > 0 {
		depth = float64(detail.LevelSum) / float64(detail.MaxLevelSum)
	}

	// Locked skills drag the tier dimension down: unrealized potential.
	tier := float64(unlockedWeight) / float64(detail.TotalSkills*MaxTierWeight)

	mastery := 0.0
	if detail.UnlockedSkills > 0 {
		mastery = float64(detail.MasteredSkills) / float64(detail.UnlockedSkills)
	}

	index := (breadth*w.Breadth + depth*w.Depth + tier*w.Tier + mastery*w.Mastery) * 100
	if index < 0 {
		index = 0
	}
	if index > 100 {
		index = 100
	}

	return EvolutionIndex{
		Index:   index,
		Breadth: breadth,
		Depth:   depth,
		Tier:    tier,
		Mastery: mastery,
		Detail:  detail,
	}
}
