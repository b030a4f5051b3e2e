// Package llmtest provides a scripted fake language-service client for
// deterministic handler and engine tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/kursio/weft/pkg/llm"
)

// ErrScriptExhausted is returned when the fake receives more calls than it
// has scripted responses.
var ErrScriptExhausted = errors.New("llmtest: no scripted response left")

// Fake is a queue-driven llm.Client. Each Complete call pops the next
// scripted response; requests are recorded for assertions.
type Fake struct {
	mu        sync.Mutex
	responses []step
	Requests  []llm.Request
}

type step struct {
	resp *llm.Response
	err  error
}

// New creates an empty fake. With no script, calls fail with ErrScriptExhausted.
func New() *Fake {
	return &Fake{}
}

// Reply queues a plain text response.
func (f *Fake) Reply(text string) *Fake {
	return f.enqueue(&llm.Response{Content: text}, nil)
}

// ReplyToolCall queues a response requesting a tool call.
func (f *Fake) ReplyToolCall(name string, args map[string]any) *Fake {
	return f.enqueue(&llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "call-1", Name: name, Args: args}},
	}, nil)
}

// Fail queues an error response.
func (f *Fake) Fail(err error) *Fake {
	return f.enqueue(nil, err)
}

func (f *Fake) enqueue(resp *llm.Response, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, step{resp: resp, err: err})
	return f
}

// Complete implements llm.Client.
func (f *Fake) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if len(f.responses) == 0 {
		return nil, ErrScriptExhausted
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.resp, next.err
}

// Calls returns the number of Complete calls received.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
