// Package analyzer ranks the likely next steps of a conversation and
// summarizes its progress. It is purely advisory: it reads the graph and a
// session snapshot and never mutates either, so its output can safely enrich
// language-service prompts without influencing the interpreter's own
// transition rules.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kursio/weft/pkg/domain"
)

// Score components. Every outgoing edge starts at baseScore; the target's
// kind and the edge label's wording adjust it.
const (
	baseScore = 50

	sectionBonus = 20
	promptBonus  = 15
	endBonus     = 10

	forwardLabelBonus    = 10
	skipLabelPenalty     = 5
	backwardLabelPenalty = 10
)

// Engagement tiers derived from the interaction count.
const (
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

const (
	mediumEngagementAt = 3
	highEngagementAt   = 10
)

// Choice is one ranked outgoing edge.
type Choice struct {
	Target *domain.Node `json:"-"`
	NodeID string       `json:"node_id"`
	Kind   domain.Kind  `json:"kind"`
	Label  string       `json:"label,omitempty"`
	Score  int          `json:"score"`
}

// Progress summarizes how far the session has come.
type Progress struct {
	CompletionPercent float64       `json:"completion_percent"`
	InteractionCount  int           `json:"interaction_count"`
	TimeSpent         time.Duration `json:"time_spent"`
	Engagement        string        `json:"engagement"`
}

// Report is the full analysis of one session snapshot.
type Report struct {
	NodeID   string   `json:"node_id"`
	Choices  []Choice `json:"choices"`
	Progress Progress `json:"progress"`
	Guidance []string `json:"guidance"`
}

// Analyze ranks the current node's outgoing edges and computes the progress
// summary. The entry node stands in when the session has not started yet.
func Analyze(g *domain.Graph, st *domain.State) (*Report, error) {
	node := g.FindNode(st.CurrentNodeID)
	if node == nil {
		node = g.EntryNode()
	}
	if node == nil {
		return nil, &domain.NodeNotFoundError{NodeID: st.CurrentNodeID}
	}

	choices := rankChoices(g, node.ID)
	progress := measureProgress(g, st)

	return &Report{
		NodeID:   node.ID,
		Choices:  choices,
		Progress: progress,
		Guidance: guidance(choices, progress),
	}, nil
}

// rankChoices scores each outgoing edge and sorts descending; ties keep
// declaration order.
func rankChoices(g *domain.Graph, nodeID string) []Choice {
	conns := g.Outgoing(nodeID)
	choices := make([]Choice, 0, len(conns))
	for _, c := range conns {
		choices = append(choices, Choice{
			Target: c.Target,
			NodeID: c.Target.ID,
			Kind:   c.Target.Kind,
			Label:  c.Label,
			Score:  scoreEdge(c.Target, c.Label),
		})
	}
	sort.SliceStable(choices, func(i, j int) bool {
		return choices[i].Score > choices[j].Score
	})
	return choices
}

func scoreEdge(target *domain.Node, label string) int {
	score := baseScore

	switch target.Kind {
	case domain.KindSection:
		score += sectionBonus
	case domain.KindPrompt:
		score += promptBonus
	case domain.KindEnd:
		score += endBonus
	}

	l := strings.ToLower(label)
	if strings.Contains(l, "next") || strings.Contains(l, "continue") {
		score += forwardLabelBonus
	}
	if strings.Contains(l, "skip") {
		score -= skipLabelPenalty
	}
	if strings.Contains(l, "back") || strings.Contains(l, "previous") {
		score -= backwardLabelPenalty
	}
	return score
}

// measureProgress derives the completion percentage from distinct visited
// nodes, counts interactions (free-text answers plus section interactions),
// and spans the first to last recorded timestamp.
func measureProgress(g *domain.Graph, st *domain.State) Progress {
	visited := make(map[string]struct{}, len(st.Visited))
	for _, id := range st.Visited {
		visited[id] = struct{}{}
	}

	completion := 0.0
	if len(g.Nodes) > 0 {
		completion = float64(len(visited)) / float64(len(g.Nodes)) * 100
	}

	interactions := len(st.Responses)
	for _, log := range st.SectionLog {
		interactions += len(log)
	}

	return Progress{
		CompletionPercent: completion,
		InteractionCount:  interactions,
		TimeSpent:         timeSpan(st),
		Engagement:        engagementTier(interactions),
	}
}

func engagementTier(interactions int) string {
	switch {
	case interactions >= highEngagementAt:
		return EngagementHigh
	case interactions >= mediumEngagementAt:
		return EngagementMedium
	default:
		return EngagementLow
	}
}

// timeSpan is the distance between the earliest and latest recorded
// timestamp across message histories and section interactions.
func timeSpan(st *domain.State) time.Duration {
	var first, last time.Time

	observe := func(ts time.Time) {
		if ts.IsZero() {
			return
		}
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}

	for _, msgs := range st.History {
		for _, m := range msgs {
			observe(m.Timestamp)
		}
	}
	for _, log := range st.SectionLog {
		for _, in := range log {
			observe(in.Timestamp)
		}
	}

	if first.IsZero() {
		return 0
	}
	return last.Sub(first)
}

// guidance renders the short human-readable summary lines.
func guidance(choices []Choice, p Progress) []string {
	var out []string

	if len(choices) > 0 {
		top := choices[0]
		what := string(top.Kind)
		if top.Label != "" {
			what = fmt.Sprintf("%s (%s)", top.Kind, top.Label)
		}
		out = append(out, fmt.Sprintf("Most likely next step: %s %s, score %d.", what, top.NodeID, top.Score))
	} else {
		out = append(out, "This step has no outgoing connections; the conversation ends here.")
	}

	switch p.Engagement {
	case EngagementHigh:
		out = append(out, fmt.Sprintf("The learner is highly engaged (%d interactions).", p.InteractionCount))
	case EngagementMedium:
		out = append(out, fmt.Sprintf("The learner is moderately engaged (%d interactions).", p.InteractionCount))
	default:
		out = append(out, "The learner has barely interacted so far; consider prompting them.")
	}

	out = append(out, fmt.Sprintf("Training is %.0f%% complete.", p.CompletionPercent))
	return out
}
