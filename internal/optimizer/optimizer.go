// Package optimizer asks Gemini to propose new general-tree skills that
// synergize with what the agent can already do. It implements
// evolution.TreeOptimizer; the coordinator invokes it on its own cadence
// and swallows any error it returns.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"prokaryote/internal/evolution"
	"prokaryote/internal/logging"
)

// discoveryLevelFloor gates skill discovery: below this total general-tree
// level the agent is still filling out its seeded skills and new branches
// would only dilute effort.
const discoveryLevelFloor = 50

// newSkillCeiling is the level cap given to every AI-discovered skill.
const newSkillCeiling = 20

// Optimizer proposes new skills via the Gemini API.
type Optimizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a Gemini-backed optimizer.
func New(apiKey, model string, timeout time.Duration) (*Optimizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Optimizer{client: client, model: model, timeout: timeout}, nil
}

// suggestionsResponse is the JSON shape the model is asked to return.
type suggestionsResponse struct {
	Suggestions []suggestion `json:"suggestions"`
}

type suggestion struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Capabilities  []string `json:"capabilities"`
	Prerequisites []string `json:"prerequisites"`
	Reason        string   `json:"reason"`
}

// ProposeSkills asks the model for one or two new skills grounded in the
// current tree. Returns no proposals without error when the tree is still
// below the discovery floor.
func (o *Optimizer) ProposeSkills(ctx context.Context, tree *evolution.SkillTree, ec evolution.EvolutionContext) ([]evolution.ProposedSkill, error) {
	if tree.LevelSum() < discoveryLevelFloor {
		logging.OptimizerDebug("skipping discovery: total level %d below floor %d",
			tree.LevelSum(), discoveryLevelFloor)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt := o.buildPrompt(tree, ec)
	resp, err := o.client.Models.GenerateContent(ctx, o.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	suggestions, err := parseSuggestions(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	proposals := make([]evolution.ProposedSkill, 0, len(suggestions))
	for _, s := range suggestions {
		if s.ID == "" {
			continue
		}
		proposals = append(proposals, normalize(s))
	}
	logging.Optimizer("model proposed %d skills (trigger %s, round %d)",
		len(proposals), ec.RecentSuccess, ec.Round)
	return proposals, nil
}

// buildPrompt summarizes the current tree and asks for synergistic
// additions in the three skill categories.
func (o *Optimizer) buildPrompt(tree *evolution.SkillTree, ec evolution.EvolutionContext) string {
	var current []string
	for id, s := range tree.Skills {
		if s.Level > 0 {
			name := s.Name
			if name == "" {
				name = id
			}
			current = append(current, fmt.Sprintf("- %s (Lv.%d, %s)", name, s.Level, s.Tier))
		}
	}
	sort.Strings(current)
	if len(current) == 0 {
		current = []string{"- none yet"}
	}

	var b strings.Builder
	b.WriteString("You are a capability planner for a self-evolving agent.\n\n")
	b.WriteString("## Current general skills\n")
	b.WriteString(strings.Join(current, "\n"))
	fmt.Fprintf(&b, "\n\n## Just evolved\n%s (evolution round %d, stage %s)\n\n", ec.RecentSuccess, ec.Round, ec.Stage)
	b.WriteString(`## Task
Suggest 1-2 new general skills to add. Requirements:
1. Each must synergize with the existing skills.
2. Each must belong to one of these categories:
   - knowledge_acquisition: expanding the channels and methods for gathering information
   - world_interaction: strengthening the ability to act on the real world
   - self_evolution: improving the agent's capacity for self-improvement

Return JSON:
{
  "suggestions": [
    {
      "id": "skill_id",
      "name": "Skill Name",
      "category": "knowledge_acquisition|world_interaction|self_evolution",
      "description": "what the skill does",
      "capabilities": ["capability 1", "capability 2"],
      "prerequisites": ["existing_skill_id"],
      "reason": "why this skill"
    }
  ]
}

Return only JSON. If there is no good suggestion, return an empty array.`)
	return b.String()
}

var jsonBlock = regexp.MustCompile(`\{[\s\S]*\}`)

// parseSuggestions extracts the suggestions object from the model output,
// tolerating prose or fencing around the JSON.
func parseSuggestions(text string) ([]suggestion, error) {
	match := jsonBlock.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var out suggestionsResponse
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// normalize converts a raw suggestion into a proposal. Discovered skills
// always start as locked basic skills with a small ceiling; prerequisites
// become an explicit unlock condition so the gate survives tree edits.
func normalize(s suggestion) evolution.ProposedSkill {
	p := evolution.ProposedSkill{
		ID:            s.ID,
		Name:          s.Name,
		Category:      s.Category,
		Tier:          evolution.TierBasic,
		MaxLevel:      newSkillCeiling,
		Prerequisites: s.Prerequisites,
		Description:   s.Description,
		Capabilities:  s.Capabilities,
		Reason:        s.Reason,
	}
	if p.Name == "" {
		p.Name = s.ID
	}
	if p.Category == "" {
		p.Category = evolution.CategoryKnowledgeAcquisition
	}
	if len(s.Prerequisites) > 0 {
		conds := make([]string, len(s.Prerequisites))
		for i, prereq := range s.Prerequisites {
			conds[i] = fmt.Sprintf("%s >= %d", prereq, evolution.ImplicitUnlockLevel)
		}
		p.UnlockCondition = strings.Join(conds, " AND ")
	}
	return p
}
