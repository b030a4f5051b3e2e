// Package domain contains the core types of the flow interpreter: the
// authored flow graph (typed nodes and labeled edges), the per-conversation
// session state, step results, and the error taxonomy.
//
// Types here carry no behavior beyond queries and state bookkeeping; the
// interpretation rules live in the engine.
package domain
