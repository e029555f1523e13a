// Package evolution implements the skill evolution coordinator: two skill
// trees (general and domain), a multi-dimensional progress index, a
// failure-aware selection policy, and the unlock machinery that gates
// locked skills behind their prerequisites.
package evolution

// Tier is the ordered skill-difficulty class. Each tier carries a scoring
// weight and a default level ceiling; a skill may override its ceiling
// with an explicit max_level.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
	TierMaster       Tier = "master"
)

// tierWeights feed the tier dimension of the evolution index.
var tierWeights = map[Tier]int{
	TierBasic:        1,
	TierIntermediate: 2,
	TierAdvanced:     3,
	TierMaster:       4,
}

// MaxTierWeight normalizes the tier dimension.
const MaxTierWeight = 4

// defaultCeilings are the per-tier level caps. Master and unknown tiers
// fall back to the basic ceiling.
var defaultCeilings = map[Tier]int{
	TierBasic:        20,
	TierIntermediate: 30,
	TierAdvanced:     50,
}

const fallbackCeiling = 20

// tierOrder is the tie-break ordering used by the selector (lower first).
var tierOrder = map[Tier]int{
	TierBasic:        0,
	TierIntermediate: 1,
	TierAdvanced:     2,
	TierMaster:       3,
}

// Weight returns the tier's index weight (unknown tiers count as basic).
func (t Tier) Weight() int {
	if w, ok := tierWeights[t]; ok {
		return w
	}
	return 1
}

// Order returns the tier's selection ordering (unknown tiers sort first).
func (t Tier) Order() int {
	return tierOrder[t]
}

// DefaultCeiling returns the tier's default level cap.
func (t Tier) DefaultCeiling() int {
	if c, ok := defaultCeilings[t]; ok {
		return c
	}
	return fallbackCeiling
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierWeights[t]
	return ok
}

// Skill categories. Free-form strings on the wire; these are the ones the
// seeded trees use.
const (
	CategoryKnowledgeAcquisition = "knowledge_acquisition"
	CategoryWorldInteraction     = "world_interaction"
	CategorySelfEvolution        = "self_evolution"
)

// Skill is one node of a skill tree. The JSON layout matches the persisted
// tree files bit-for-bit.
type Skill struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Tier            Tier     `json:"tier"`
	Level           int      `json:"level"`
	MaxLevel        int      `json:"max_level,omitempty"`
	Unlocked        bool     `json:"unlocked"`
	Prerequisites   []string `json:"prerequisites"`
	UnlockCondition string   `json:"unlock_condition,omitempty"`
	Proficiency     float64  `json:"proficiency"`

	// Optimizer-written metadata, preserved across rewrites.
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	AIGenerated  bool     `json:"ai_generated,omitempty"`
	GeneratedAt  string   `json:"generated_at,omitempty"`
}

// Ceiling resolves the skill's effective level cap: the explicit max_level
// when present, otherwise the tier default.
func (s *Skill) Ceiling() int {
	if s.MaxLevel > 0 {
		return s.MaxLevel
	}
	return s.Tier.DefaultCeiling()
}

// AtCeiling reports whether the skill has no room to grow.
func (s *Skill) AtCeiling() bool {
	return s.Level >= s.Ceiling()
}

// Mastered reports whether the skill reached half its ceiling, the
// threshold used by both the mastery dimension and prerequisite boosting.
func (s *Skill) Mastered() bool {
	return float64(s.Level) >= float64(s.Ceiling())*0.5
}

// Clone returns a deep copy of the skill.
func (s *Skill) Clone() *Skill {
	c := *s
	c.Prerequisites = append([]string(nil), s.Prerequisites...)
	c.Capabilities = append([]string(nil), s.Capabilities...)
	return &c
}
