package flow

import (
	"context"

	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm"
)

// runQuestion asks a quiz question and grades the answer. Grading only picks
// the feedback text; branching follows the answer's yes/no keywords, never
// the grade.
func (e *Engine) runQuestion(ctx context.Context, env *stepEnv, node *domain.Node, input string) (*domain.StepResult, error) {
	state := env.state
	questionText := node.Attr(domain.AttrQuestionText)

	if !state.HasRun(node.ID) {
		state.MarkRun(node.ID)
		state.AppendHistory(node.ID, llm.RoleAssistant, questionText, e.now())
		return &domain.StepResult{
			Action:             domain.ActionRespond,
			Message:            questionText,
			WaitingForResponse: true,
		}, nil
	}

	if input == "" {
		return e.questionRestate(ctx, env, node, questionText), nil
	}
	return e.questionGrade(ctx, env, node, questionText, input), nil
}

// questionRestate re-asks an already-seen question in fresh words.
func (e *Engine) questionRestate(ctx context.Context, env *stepEnv, node *domain.Node, questionText string) *domain.StepResult {
	state := env.state

	sys := trainingContext(env) +
		"Restate the following quiz question in fresh words, keeping its language and meaning."
	msg := e.model.Text(ctx, "question.restate", llm.Request{
		System:   sys,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: questionText}},
	}, questionText)

	state.AppendHistory(node.ID, llm.RoleAssistant, msg, e.now())
	return &domain.StepResult{
		Action:             domain.ActionRespond,
		Message:            msg,
		WaitingForResponse: true,
	}
}

// questionGrade records the answer, classifies it for feedback, and advances
// to the branch the answer's keywords select.
func (e *Engine) questionGrade(ctx context.Context, env *stepEnv, node *domain.Node, questionText, input string) *domain.StepResult {
	state := env.state
	state.SetResponse(node.ID, input)
	state.AppendHistory(node.ID, llm.RoleUser, input, e.now())

	correct := e.model.Classify(ctx, "question.grade",
		"Decide whether the learner's answer to this question is right: "+questionText,
		input, "correct", "incorrect")

	feedback := "Not quite, but good thinking. Let's keep going."
	if correct {
		feedback = "That's right, well done!"
	}

	res := &domain.StepResult{Action: domain.ActionRespond, Message: feedback}
	if next := e.resolveAnswerBranch(env.graph, node.ID, input); next != nil {
		state.AppendVisited(node.ID)
		state.CurrentNodeID = next.ID
		res.NextNodeID = next.ID
	}

	state.AppendHistory(node.ID, llm.RoleAssistant, feedback, e.now())
	return res
}

// resolveAnswerBranch scans the answer for yes/no keywords among the node's
// edges. The heuristic needs at least two edges to be meaningful; otherwise
// the first edge is the fallback.
func (e *Engine) resolveAnswerBranch(g *domain.Graph, nodeID, input string) *domain.Node {
	conns := g.Outgoing(nodeID)
	if len(conns) == 0 {
		return nil
	}

	if len(conns) >= 2 {
		for _, intent := range []domain.Intent{domain.IntentYes, domain.IntentNo} {
			if !e.synonyms.TextHasIntent(input, intent) {
				continue
			}
			for _, c := range conns {
				if li, ok := e.synonyms.IntentOf(c.Label); ok && li == intent {
					return c.Target
				}
			}
		}
	}
	return conns[0].Target
}
