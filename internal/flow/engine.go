// Package flow implements the conversational flow interpreter: the per-kind
// step handlers, the tool dispatcher, and the orchestrator that walks the
// graph one step at a time.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm"
)

// DefaultMaxCascade bounds how many nodes a single Step call may chain
// through via auto-transitions. Authored graphs are expected to hit a
// waiting or terminal node well before this; the bound exists so a cyclic
// graph without one cannot hang a step call forever.
const DefaultMaxCascade = 8

// historyWindow is the number of prior history entries replayed to the
// language service on conversational steps.
const historyWindow = 5

// Engine is the flow orchestrator: the single entry point that resolves the
// active step (honoring any pending diversion), runs its handler, and applies
// the cascading auto-transition rules.
//
// The engine holds no session state of its own. Step borrows and mutates the
// caller's State; the graph is read-only and may be shared across sessions.
type Engine struct {
	model    *llm.Resilient
	tools    *Dispatcher
	synonyms domain.SynonymTable
	logger   *slog.Logger
	now      func() time.Time

	maxCascade int
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSynonyms replaces the default locale synonym table.
func WithSynonyms(t domain.SynonymTable) Option {
	return func(e *Engine) {
		e.synonyms = t
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxCascade overrides the auto-transition chain bound.
func WithMaxCascade(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCascade = n
		}
	}
}

// NewEngine creates an engine around the given resilient language-service
// adapter.
func NewEngine(model *llm.Resilient, opts ...Option) *Engine {
	e := &Engine{
		model:      model,
		synonyms:   domain.DefaultSynonyms(),
		logger:     logging.NewNop(),
		now:        time.Now,
		maxCascade: DefaultMaxCascade,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tools = NewDispatcher(WithDispatcherLogger(e.logger))
	return e
}

// Dispatcher exposes the engine's tool dispatcher.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.tools
}

// stepEnv bundles the per-call collaborators handed to handlers.
type stepEnv struct {
	graph *domain.Graph
	state *domain.State
	meta  map[string]string
}

// Step executes one step of the conversation.
//
// A pending diversion (state.TempNodeID) takes precedence over the current
// node; when the diverted node finishes, the most recent return-stack entry
// is resumed with a "you have returned" notice. Otherwise the active node's
// handler runs and the auto-transition rules are applied in order.
//
// Language-service and tool failures are absorbed inside the handlers; only
// node-resolution failures surface as an error here.
func (e *Engine) Step(ctx context.Context, g *domain.Graph, state *domain.State, input string, meta map[string]string) (*domain.StepResult, error) {
	env := &stepEnv{graph: g, state: state, meta: meta}

	if state.TempNodeID != "" {
		return e.stepDiverted(ctx, env, input)
	}

	if state.CurrentNodeID == "" {
		entry := g.EntryNode()
		if entry == nil {
			return nil, &domain.NodeNotFoundError{}
		}
		state.CurrentNodeID = entry.ID
	}

	node := g.FindNode(state.CurrentNodeID)
	if node == nil {
		return nil, &domain.NodeNotFoundError{NodeID: state.CurrentNodeID}
	}

	return e.execute(ctx, env, node, input, 0)
}

// stepDiverted executes the diversion target and springs back to the node
// that issued the diversion once the target yields a continue-like result.
func (e *Engine) stepDiverted(ctx context.Context, env *stepEnv, input string) (*domain.StepResult, error) {
	state := env.state

	node := env.graph.FindNode(state.TempNodeID)
	if node == nil {
		return nil, &domain.NodeNotFoundError{NodeID: state.TempNodeID}
	}

	res, err := e.runNode(ctx, env, node, input)
	if err != nil {
		return nil, err
	}

	// A waiting result keeps the diversion active; a nested navigation
	// keeps its own bookkeeping. Anything else unwinds one stack entry.
	if res.WaitingForResponse || res.Action == domain.ActionNavigateToNode {
		return res, nil
	}

	resumeID, ok := state.PopReturn()
	if !ok {
		return res, nil
	}
	state.CurrentNodeID = resumeID
	state.TempNodeID = ""

	resumed := env.graph.FindNode(resumeID)
	if resumed == nil {
		return nil, &domain.NodeNotFoundError{NodeID: resumeID}
	}

	back, err := e.runNode(ctx, env, resumed, "")
	if err != nil {
		return nil, err
	}
	if back.Message != "" {
		back.Message = returnNotice + "\n\n" + back.Message
	} else {
		back.Message = returnNotice
	}
	return back, nil
}

const returnNotice = "You have returned to where you left off."

// execute runs one node and applies the auto-transition rules, recursing
// with a bounded depth for rules that chain into another node.
func (e *Engine) execute(ctx context.Context, env *stepEnv, node *domain.Node, input string, depth int) (*domain.StepResult, error) {
	state := env.state

	res, err := e.runNode(ctx, env, node, input)
	if err != nil {
		return nil, err
	}

	// Rule 1: a completed purpose advances and cascades exactly one level.
	if res.PurposeCompleted && res.NextNodeID != "" {
		if state.CurrentNodeID != res.NextNodeID {
			// The prompt handler normally advances the state itself; this
			// path covers handlers that only propose the target.
			state.AppendVisited(node.ID)
			state.CurrentNodeID = res.NextNodeID
		}
		next := env.graph.FindNode(res.NextNodeID)
		if next == nil {
			return res, nil
		}
		return e.runNode(ctx, env, next, "")
	}

	// Rule 2: pause while waiting for input that has not arrived.
	if res.WaitingForResponse && input == "" {
		return res, nil
	}

	// Rules 3 and 4: a start node always advances to its first connection.
	// The user's message is forwarded but deliberately not used to pick
	// among edges here.
	if node.Kind == domain.KindStart {
		conns := env.graph.Outgoing(node.ID)
		if len(conns) == 0 {
			return res, nil
		}
		state.AppendVisited(node.ID)
		state.CurrentNodeID = conns[0].Target.ID
		return e.descend(ctx, env, conns[0].Target, input, depth, res)
	}

	// Rule 5: a waiting node re-runs with the message that just arrived.
	if input != "" && res.WaitingForResponse {
		return e.descend(ctx, env, node, input, depth, res)
	}

	// Rule 6: nothing to wait for and a next node resolved: keep walking.
	if input == "" && res.NextNodeID != "" && !res.WaitingForResponse {
		next := env.graph.FindNode(res.NextNodeID)
		if next == nil {
			return res, nil
		}
		state.AppendVisited(node.ID)
		state.CurrentNodeID = next.ID
		return e.descend(ctx, env, next, "", depth, res)
	}

	return res, nil
}

// descend recurses into execute with the cascade bound applied. When the
// bound is hit the prior result is returned unchanged.
func (e *Engine) descend(ctx context.Context, env *stepEnv, node *domain.Node, input string, depth int, prior *domain.StepResult) (*domain.StepResult, error) {
	if depth+1 >= e.maxCascade {
		e.logger.Warn("auto-transition cascade bound reached",
			"node", node.ID, "bound", e.maxCascade)
		return prior, nil
	}
	return e.execute(ctx, env, node, input, depth+1)
}

// runNode dispatches to the node kind's handler and persists the execution
// memo (last action, last message, timestamp).
func (e *Engine) runNode(ctx context.Context, env *stepEnv, node *domain.Node, input string) (*domain.StepResult, error) {
	var res *domain.StepResult
	var err error

	switch node.Kind {
	case domain.KindStart:
		res, err = e.runStart(env, node)
	case domain.KindPrompt:
		res, err = e.runPrompt(ctx, env, node, input)
	case domain.KindSection:
		res, err = e.runSection(ctx, env, node, input)
	case domain.KindQuestion:
		res, err = e.runQuestion(ctx, env, node, input)
	case domain.KindContent:
		res, err = e.runContent(env, node)
	case domain.KindEnd:
		res, err = e.runEnd(env, node)
	default:
		res = &domain.StepResult{
			Action:  domain.ActionRespond,
			Message: "This step kind is not supported.",
		}
	}
	if err != nil {
		return nil, err
	}

	memo := env.state.Memo(node.ID)
	memo[domain.MemoLastAction] = res.Action
	memo[domain.MemoLastMessage] = res.Message
	memo[domain.MemoTimestamp] = e.now().UTC().Format(time.RFC3339)

	e.logger.Debug("step executed",
		"node", node.ID, "kind", string(node.Kind),
		"action", res.Action, "waiting", res.WaitingForResponse)

	return res, nil
}

// trainingContext renders the caller-supplied metadata into a short prompt
// fragment.
func trainingContext(env *stepEnv) string {
	title := env.state.Meta["title"]
	if title == "" {
		title = env.meta["title"]
	}
	desc := env.state.Meta["description"]
	if desc == "" {
		desc = env.meta["description"]
	}

	out := ""
	if title != "" {
		out += "Training: " + title + "\n"
	}
	if desc != "" {
		out += "About: " + desc + "\n"
	}
	return out
}

// historyMessages converts the node's recent history into request messages.
func historyMessages(state *domain.State, nodeID string) []llm.Message {
	var msgs []llm.Message
	for _, h := range state.HistoryTail(nodeID, historyWindow) {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}
	return msgs
}
