package evolution

// IndexWeights is the tunable weighting of the four evolution index
// dimensions. Weights should sum to 1.
type IndexWeights struct {
	Breadth float64 `yaml:"breadth" json:"breadth"`
	Depth   float64 `yaml:"depth" json:"depth"`
	Tier    float64 `yaml:"tier" json:"tier"`
	Mastery float64 `yaml:"mastery" json:"mastery"`
}

// Priority is a stage's (general, domain) selection weighting, summing to 1.
type Priority struct {
	General float64 `json:"general"`
	Domain  float64 `json:"domain"`
}

// Policy bundles every tunable constant of the coordinator. The defaults
// reproduce the long-observed behavior; tests pin them explicitly.
type Policy struct {
	IndexWeights    IndexWeights
	StagePriorities map[Stage]Priority

	// Failure fallback
	CooldownShort       int     // rounds, applied at the 3rd consecutive failure
	CooldownLong        int     // rounds, applied at the 5th consecutive failure
	FailurePenaltyStep  float64 // score penalty per consecutive failure
	FailurePenaltyMax   float64 // penalty cap
	PrereqBonusDirect   float64 // bonus for direct prerequisites of a cooling skill
	PrereqBonusIndirect float64 // bonus one hop further up the chain

	// Selection
	TopK int // pick uniformly among this many lowest-scoring candidates

	// Optimizer cadence: every Nth successful general evolution
	OptimizeEvery int
}

// DefaultPolicy returns the standard policy constants.
func DefaultPolicy() Policy {
	return Policy{
		IndexWeights: IndexWeights{
			Breadth: 0.25,
			Depth:   0.35,
			Tier:    0.20,
			Mastery: 0.20,
		},
		StagePriorities: map[Stage]Priority{
			StageSprouting:    {General: 0.80, Domain: 0.20},
			StageGrowing:      {General: 0.60, Domain: 0.40},
			StageMaturing:     {General: 0.40, Domain: 0.60},
			StageSpecializing: {General: 0.25, Domain: 0.75},
		},
		CooldownShort:       3,
		CooldownLong:        10,
		FailurePenaltyStep:  0.2,
		FailurePenaltyMax:   0.8,
		PrereqBonusDirect:   0.3,
		PrereqBonusIndirect: 0.15,
		TopK:                3,
		OptimizeEvery:       5,
	}
}

// PriorityFor returns the stage's priority pair, falling back to the
// sprouting weighting for unknown stages.
func (p Policy) PriorityFor(stage Stage) Priority {
	if prio, ok := p.StagePriorities[stage]; ok {
		return prio
	}
	return Priority{General: 0.80, Domain: 0.20}
}
