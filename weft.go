/*
Package weft is a conversational flow engine for interactive video trainings.

An author describes a training as a graph of typed steps (welcome, free-form
prompt, video section, quiz question, static content, end); weft walks that
graph one step at a time, using a generative language service to phrase
user-facing text, classify free-text answers, and run side-effecting tools
such as jumping the video to a timestamp or diverting to another step and
returning later.

The top-level Engine wires the interpreter to a graph registry and a
session store; the underlying pieces (pkg/graph, pkg/session, pkg/analyzer,
the adapters) can also be used directly.
*/
package weft

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kursio/weft/internal/flow"
	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/adapters/memory"
	"github.com/kursio/weft/pkg/analyzer"
	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/graph"
	"github.com/kursio/weft/pkg/llm"
	"github.com/kursio/weft/pkg/ports"
	"github.com/kursio/weft/pkg/session"
)

// Version of the library.
const Version = "0.1.0"

// Engine is the high-level entry point: a flow interpreter bound to a graph
// registry and a session store.
type Engine struct {
	flow     *flow.Engine
	graphs   *graph.Registry
	sessions *session.Manager
	logger   *slog.Logger

	store    ports.StateStore
	locker   ports.DistributedLocker
	synonyms domain.SynonymTable
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for the engine and its collaborators.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore replaces the default in-memory session store.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithSynonyms replaces the built-in locale synonym table.
func WithSynonyms(t domain.SynonymTable) Option {
	return func(e *Engine) {
		e.synonyms = t
	}
}

// New creates an Engine around the given language-service client.
func New(client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		graphs: graph.NewRegistry(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = memory.NewStore()
	}

	model := llm.NewResilient(client, llm.WithLogger(e.logger))

	flowOpts := []flow.Option{flow.WithLogger(e.logger)}
	if e.synonyms != nil {
		flowOpts = append(flowOpts, flow.WithSynonyms(e.synonyms))
	}
	e.flow = flow.NewEngine(model, flowOpts...)

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessOpts...)

	return e
}

// Graphs exposes the graph registry for registration and inspection.
func (e *Engine) Graphs() *graph.Registry {
	return e.graphs
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// StartSession creates a new session on the named graph, runs the opening
// step with the caller's training metadata, and persists the state. Returns
// the new session id and the first step result.
func (e *Engine) StartSession(ctx context.Context, graphName string, meta map[string]string) (string, *domain.StepResult, error) {
	g, err := e.graphs.Graph(graphName)
	if err != nil {
		return "", nil, err
	}

	sessionID := uuid.NewString()
	var res *domain.StepResult
	err = e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		st := domain.NewState(sessionID)
		var stepErr error
		res, stepErr = e.flow.Step(ctx, g, st, "", meta)
		if stepErr != nil {
			return stepErr
		}
		return e.sessions.Store().Save(ctx, sessionID, st)
	})
	if err != nil {
		return "", nil, err
	}
	return sessionID, res, nil
}

// Step runs one step of an existing session with the user's message and
// persists the updated state.
func (e *Engine) Step(ctx context.Context, graphName, sessionID, input string) (*domain.StepResult, error) {
	g, err := e.graphs.Graph(graphName)
	if err != nil {
		return nil, err
	}

	var res *domain.StepResult
	err = e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		st, loadErr := e.sessions.Store().Load(ctx, sessionID)
		if loadErr != nil {
			return loadErr
		}
		var stepErr error
		res, stepErr = e.flow.Step(ctx, g, st, input, nil)
		if stepErr != nil {
			return stepErr
		}
		return e.sessions.Store().Save(ctx, sessionID, st)
	})
	return res, err
}

// Analyze produces the advisory path report for a session snapshot.
func (e *Engine) Analyze(ctx context.Context, graphName, sessionID string) (*analyzer.Report, error) {
	g, err := e.graphs.Graph(graphName)
	if err != nil {
		return nil, err
	}
	st, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(g, st)
}

// EndSession discards a session's state.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}
