package flow

import (
	"fmt"

	"github.com/kursio/weft/pkg/domain"
)

// fallbackReply is the generic apology used when a language-service call
// fails while answering the user.
const fallbackReply = "I'm sorry, I couldn't process that right now. Let's continue."

// runStart seeds the session's training context from the caller-supplied
// metadata and proposes the first connected node. Start steps never wait.
func (e *Engine) runStart(env *stepEnv, node *domain.Node) (*domain.StepResult, error) {
	state := env.state
	if len(env.meta) > 0 {
		if state.Meta == nil {
			state.Meta = make(map[string]string, len(env.meta))
		}
		for k, v := range env.meta {
			if _, ok := state.Meta[k]; !ok {
				state.Meta[k] = v
			}
		}
	}

	res := &domain.StepResult{Action: domain.ActionRespond}
	if conns := env.graph.Outgoing(node.ID); len(conns) > 0 {
		res.NextNodeID = conns[0].Target.ID
	}
	return res, nil
}

// runContent shows the configured content item and immediately proposes the
// first connected node. Content steps never wait.
func (e *Engine) runContent(env *stepEnv, node *domain.Node) (*domain.StepResult, error) {
	contentID := node.Attr(domain.AttrContentID)

	res := &domain.StepResult{
		Action:  domain.ActionShowContent,
		Message: fmt.Sprintf("Showing content: %s", contentID),
		Fields:  map[string]any{"content_id": contentID},
	}
	if conns := env.graph.Outgoing(node.ID); len(conns) > 0 {
		res.NextNodeID = conns[0].Target.ID
	}
	return res, nil
}

// runEnd stops playback and closes the conversation. Terminal: never
// proposes a next node.
func (e *Engine) runEnd(env *stepEnv, node *domain.Node) (*domain.StepResult, error) {
	env.state.Playing = false

	msg := node.Attr(domain.AttrMessage)
	if msg == "" {
		msg = "You have completed this training. Well done!"
	}
	return &domain.StepResult{Action: domain.ActionEnd, Message: msg}, nil
}
