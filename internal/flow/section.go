package flow

import (
	"context"
	"strings"

	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm"
)

// runSection manages the sub-conversation bound to a playable video section.
// The first run starts playback; later runs chat with the learner, with the
// navigation tools enabled on top of the base catalog.
func (e *Engine) runSection(ctx context.Context, env *stepEnv, node *domain.Node, input string) (*domain.StepResult, error) {
	state := env.state

	sectionID := node.Attr(domain.AttrSectionID)
	if sectionID == "" {
		sectionID = node.ID
	}

	if !state.HasRun(node.ID) {
		state.MarkRun(node.ID)
		state.CurrentSectionID = sectionID
		state.Playing = true

		res := &domain.StepResult{Action: domain.ActionPlay}
		if conns := env.graph.Outgoing(node.ID); len(conns) > 0 {
			res.NextNodeID = conns[0].Target.ID
		}
		return res, nil
	}

	if input == "" {
		return e.sectionGreeting(ctx, env, node), nil
	}
	return e.sectionChat(ctx, env, node, sectionID, input), nil
}

// sectionGreeting emits a context-appropriate "section started" message.
func (e *Engine) sectionGreeting(ctx context.Context, env *stepEnv, node *domain.Node) *domain.StepResult {
	state := env.state

	label := node.Attr(domain.AttrLabel)
	fallback := "We're in this section now. Ask me anything about it."
	if label != "" {
		fallback = "We're watching \"" + label + "\" now. Ask me anything about it."
	}

	sys := e.sectionInstruction(env, node)
	msg := e.model.Text(ctx, "section.greet", llm.Request{
		System:   sys,
		Messages: append(historyMessages(state, node.ID), llm.Message{Role: llm.RoleUser, Content: "The section just started. Greet the learner briefly."}),
		Tools:    sectionCatalog(),
	}, fallback)

	state.AppendHistory(node.ID, llm.RoleAssistant, msg, e.now())
	return &domain.StepResult{
		Action:             domain.ActionRespond,
		Message:            msg,
		WaitingForResponse: true,
	}
}

// sectionChat answers one learner message inside the section, handling the
// section-scoped navigation tools itself and dispatching everything else
// generically.
func (e *Engine) sectionChat(ctx context.Context, env *stepEnv, node *domain.Node, sectionID, input string) *domain.StepResult {
	state := env.state
	state.AppendHistory(node.ID, llm.RoleUser, input, e.now())

	interaction := domain.SectionInteraction{Timestamp: e.now(), Input: input}

	req := llm.Request{
		System:   e.sectionInstruction(env, node),
		Messages: historyMessages(state, node.ID),
		Tools:    sectionCatalog(),
	}

	res := &domain.StepResult{Action: domain.ActionRespond}
	var reply string

	resp, err := e.model.Complete(ctx, "section.chat", req)
	switch {
	case err != nil:
		e.logger.Warn("section completion failed", "node", node.ID, "err", err)
		reply = fallbackReply
	case len(resp.ToolCalls) > 0:
		call := resp.ToolCalls[0]
		out := e.tools.Dispatch(call.Name, call.Args)
		interaction.Action = out.Action

		switch out.Action {
		case domain.ActionNavigateToNode:
			reply = e.applyNavigation(state, node, out, res)
		case domain.ActionReturnToSection:
			if id, ok := state.PopReturn(); ok {
				state.CurrentNodeID = id
				state.TempNodeID = ""
			}
			res.Action = domain.ActionReturnToSection
			reply = out.Message
			if reply == "" {
				reply = "Let's pick up the section where we left off."
			}
		default:
			res.Action = out.Action
			res.Fields = out.Fields
			reply = e.toolFollowUp(ctx, "section.tool_reply", req, call, out)
		}
	default:
		reply = strings.TrimSpace(resp.Content)
		if reply == "" {
			reply = fallbackReply
		}
	}

	state.RecordInteraction(sectionID, interaction)
	state.AppendHistory(node.ID, llm.RoleAssistant, reply, e.now())
	res.Message = reply
	return res
}

// applyNavigation executes a navigate_to_node outcome: a detour with
// return_after pushes the current node and arms the diversion; without it
// the jump is permanent.
func (e *Engine) applyNavigation(state *domain.State, node *domain.Node, out Outcome, res *domain.StepResult) string {
	res.Action = domain.ActionNavigateToNode
	res.Fields = out.Fields

	target, _ := out.Fields["target_node_id"].(string)
	returnAfter, _ := out.Fields["return_after"].(bool)
	if target != "" {
		if returnAfter {
			state.PushReturn(node.ID)
			state.TempNodeID = target
		} else {
			state.CurrentNodeID = target
		}
	}

	reply := out.Message
	if reply == "" {
		reply = "Taking you there now."
	}
	return reply
}

// sectionInstruction builds the system instruction for section chats.
func (e *Engine) sectionInstruction(env *stepEnv, node *domain.Node) string {
	sys := trainingContext(env) +
		"You are guiding a learner through a video section of an interactive training. " +
		"Reply briefly in the learner's language; use the tools when the learner asks to navigate, see content, or control the video."
	if label := node.Attr(domain.AttrLabel); label != "" {
		sys += "\nCurrent section: " + label
	}
	return sys
}
