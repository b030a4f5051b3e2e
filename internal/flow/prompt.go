package flow

import (
	"context"
	"strings"

	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm"
)

// runPrompt drives a free-form conversational step. Without input it emits a
// greeting and waits; with input it answers (optionally via a tool round
// trip), classifies whether the step's purpose was satisfied, and advances
// the session when it was.
func (e *Engine) runPrompt(ctx context.Context, env *stepEnv, node *domain.Node, input string) (*domain.StepResult, error) {
	if input == "" {
		return e.promptGreeting(ctx, env, node), nil
	}
	return e.promptAnswer(ctx, env, node, input), nil
}

// promptGreeting emits the step's opening (or re-opening) message. The raw
// configured text is restated by the language service so the learner never
// sees the author's instruction verbatim. On failure the first run falls back
// to the configured initial message; later runs fall back to a generic
// greeting rather than exposing the instruction text.
func (e *Engine) promptGreeting(ctx context.Context, env *stepEnv, node *domain.Node) *domain.StepResult {
	state := env.state

	raw := node.Attr(domain.AttrPromptText)
	fallback := "Hello! Shall we continue with the training?"
	if !state.HasRun(node.ID) {
		state.MarkRun(node.ID)
		if im := node.Attr(domain.AttrInitialMessage); im != "" {
			raw = im
			fallback = im
		}
	}
	if raw == "" {
		raw = fallback
	}

	sys := trainingContext(env) +
		"Restate the following instruction as a natural, brief greeting to the learner. " +
		"Keep the instruction's language and intent."
	if purpose := node.Attr(domain.AttrPurpose); purpose != "" {
		sys += "\nGoal of this step: " + purpose
	}

	msg := e.model.Text(ctx, "prompt.greet", llm.Request{
		System:   sys,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: raw}},
	}, fallback)

	state.AppendHistory(node.ID, llm.RoleAssistant, msg, e.now())
	return &domain.StepResult{
		Action:             domain.ActionRespond,
		Message:            msg,
		WaitingForResponse: true,
	}
}

// promptAnswer handles a user message: one completion with the tool catalog
// enabled, an optional tool dispatch plus follow-up round, then the purpose
// classification that decides whether the flow advances.
func (e *Engine) promptAnswer(ctx context.Context, env *stepEnv, node *domain.Node, input string) *domain.StepResult {
	state := env.state
	state.MarkRun(node.ID)
	state.AppendHistory(node.ID, llm.RoleUser, input, e.now())
	state.SetResponse(node.ID, input)

	sys := trainingContext(env) +
		"You are guiding a learner through an interactive video training. " +
		"Reply briefly in the learner's language."
	if text := node.Attr(domain.AttrPromptText); text != "" {
		sys += "\nStep instruction: " + text
	}
	purpose := node.Attr(domain.AttrPurpose)
	if purpose != "" {
		sys += "\nGoal of this step: " + purpose
	}

	req := llm.Request{
		System:   sys,
		Messages: historyMessages(state, node.ID),
		Tools:    baseCatalog(),
	}

	res := &domain.StepResult{Action: domain.ActionRespond}
	var reply string

	resp, err := e.model.Complete(ctx, "prompt.answer", req)
	switch {
	case err != nil:
		e.logger.Warn("prompt completion failed", "node", node.ID, "err", err)
		reply = fallbackReply
	case len(resp.ToolCalls) > 0:
		call := resp.ToolCalls[0]
		out := e.tools.Dispatch(call.Name, call.Args)
		res.Action = out.Action
		res.Fields = out.Fields
		reply = e.toolFollowUp(ctx, "prompt.tool_reply", req, call, out)
	default:
		reply = strings.TrimSpace(resp.Content)
		if reply == "" {
			reply = fallbackReply
		}
	}

	state.AppendHistory(node.ID, llm.RoleAssistant, reply, e.now())
	res.Message = reply

	completed := true
	if purpose != "" {
		completed = e.model.Classify(ctx, "prompt.purpose",
			"Decide whether the learner's answer satisfies this goal: "+purpose,
			input, "completed", "not completed")
	}
	if !completed {
		return res
	}

	res.PurposeCompleted = true
	if next := e.resolveBranch(env.graph, node.ID, input); next != nil {
		state.AppendVisited(node.ID)
		state.CurrentNodeID = next.ID
		res.NextNodeID = next.ID
	}
	return res
}

// toolFollowUp feeds a dispatched tool's outcome back to the language
// service for a closing message. The tool's own message is the fallback.
func (e *Engine) toolFollowUp(ctx context.Context, op string, req llm.Request, call llm.ToolCall, out Outcome) string {
	fallback := out.Message
	if fallback == "" {
		fallback = fallbackReply
	}

	followUp := req
	followUp.Tools = nil
	followUp.Messages = append(append([]llm.Message(nil), req.Messages...),
		llm.Message{Role: llm.RoleAssistant, Content: out.Message},
		llm.Message{Role: llm.RoleTool, Content: out.Message, ToolCallID: call.ID, Name: call.Name},
	)
	return e.model.Text(ctx, op, followUp, fallback)
}

// resolveBranch picks the next node from the user's text: synonym intents in
// priority order first, then an empty-labeled edge, then the first edge.
func (e *Engine) resolveBranch(g *domain.Graph, nodeID, input string) *domain.Node {
	conns := g.Outgoing(nodeID)
	if len(conns) == 0 {
		return nil
	}

	for _, intent := range domain.IntentPriority {
		if !e.synonyms.TextHasIntent(input, intent) {
			continue
		}
		for _, c := range conns {
			if li, ok := e.synonyms.IntentOf(c.Label); ok && li == intent {
				return c.Target
			}
		}
	}

	for _, c := range conns {
		if strings.TrimSpace(c.Label) == "" {
			return c.Target
		}
	}
	return conns[0].Target
}
