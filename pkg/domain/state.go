package domain

import "time"

// Memo keys maintained by the engine and handlers.
const (
	MemoHasRun      = "hasRun"
	MemoLastAction  = "lastAction"
	MemoLastMessage = "lastMessage"
	MemoTimestamp   = "timestamp"
)

// ChatMessage is one entry in a node's message history.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SectionInteraction records one user interaction inside a section.
type SectionInteraction struct {
	Timestamp time.Time `json:"timestamp"`
	Input     string    `json:"input"`
	Action    string    `json:"action,omitempty"`
}

// State is the mutable record of one conversation's progress. The caller
// owns its lifetime; the interpreter borrows and mutates it during a step.
// It is a plain serializable value so it can be snapshotted between calls.
type State struct {
	SessionID     string `json:"session_id,omitempty"`
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// Visited is the append-only log of completed node ids.
	Visited []string `json:"visited,omitempty"`

	// Responses holds the last free-text answer recorded per node.
	Responses map[string]string `json:"responses,omitempty"`

	// Memos is a small per-node scratchpad (hasRun flag, last action, ...).
	Memos map[string]map[string]any `json:"memos,omitempty"`

	// History holds the role-tagged message log per node.
	History map[string][]ChatMessage `json:"history,omitempty"`

	// SectionLog holds the interaction records per section id.
	SectionLog map[string][]SectionInteraction `json:"section_log,omitempty"`

	// ReturnStack is the LIFO list of nodes to resume after a diversion.
	ReturnStack []string `json:"return_stack,omitempty"`

	// TempNodeID, when set, targets execution at this node instead of
	// CurrentNodeID (diversion mode).
	TempNodeID string `json:"temp_node_id,omitempty"`

	CurrentSectionID string `json:"current_section_id,omitempty"`
	Playing          bool   `json:"playing,omitempty"`

	// Meta carries caller-supplied training context (title, description, ...)
	// seeded by the start handler.
	Meta map[string]string `json:"meta,omitempty"`
}

// NewState creates an empty session state.
func NewState(sessionID string) *State {
	return &State{SessionID: sessionID}
}

// Memo returns the scratchpad for nodeID, creating it on first use.
func (s *State) Memo(nodeID string) map[string]any {
	if s.Memos == nil {
		s.Memos = make(map[string]map[string]any)
	}
	m, ok := s.Memos[nodeID]
	if !ok {
		m = make(map[string]any)
		s.Memos[nodeID] = m
	}
	return m
}

// HasRun reports whether the node's hasRun memo flag is set.
func (s *State) HasRun(nodeID string) bool {
	if s.Memos == nil {
		return false
	}
	v, ok := s.Memos[nodeID][MemoHasRun]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// MarkRun sets the node's hasRun memo flag.
func (s *State) MarkRun(nodeID string) {
	s.Memo(nodeID)[MemoHasRun] = true
}

// SetResponse records the user's last free-text answer for a node.
func (s *State) SetResponse(nodeID, text string) {
	if s.Responses == nil {
		s.Responses = make(map[string]string)
	}
	s.Responses[nodeID] = text
}

// AppendHistory appends a message to the node's history.
func (s *State) AppendHistory(nodeID, role, content string, at time.Time) {
	if s.History == nil {
		s.History = make(map[string][]ChatMessage)
	}
	s.History[nodeID] = append(s.History[nodeID], ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: at,
	})
}

// HistoryTail returns the last n history entries for a node.
func (s *State) HistoryTail(nodeID string, n int) []ChatMessage {
	h := s.History[nodeID]
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// RecordInteraction appends an interaction to the section's log.
func (s *State) RecordInteraction(sectionID string, in SectionInteraction) {
	if s.SectionLog == nil {
		s.SectionLog = make(map[string][]SectionInteraction)
	}
	s.SectionLog[sectionID] = append(s.SectionLog[sectionID], in)
}

// AppendVisited appends a node id to the visited log.
func (s *State) AppendVisited(nodeID string) {
	s.Visited = append(s.Visited, nodeID)
}

// PushReturn pushes a node id onto the return stack.
func (s *State) PushReturn(nodeID string) {
	s.ReturnStack = append(s.ReturnStack, nodeID)
}

// PopReturn pops the most recent return-stack entry.
func (s *State) PopReturn() (string, bool) {
	if len(s.ReturnStack) == 0 {
		return "", false
	}
	id := s.ReturnStack[len(s.ReturnStack)-1]
	s.ReturnStack = s.ReturnStack[:len(s.ReturnStack)-1]
	return id, true
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Visited = append([]string(nil), s.Visited...)
	next.ReturnStack = append([]string(nil), s.ReturnStack...)

	if s.Responses != nil {
		next.Responses = make(map[string]string, len(s.Responses))
		for k, v := range s.Responses {
			next.Responses[k] = v
		}
	}
	if s.Meta != nil {
		next.Meta = make(map[string]string, len(s.Meta))
		for k, v := range s.Meta {
			next.Meta[k] = v
		}
	}
	if s.Memos != nil {
		next.Memos = make(map[string]map[string]any, len(s.Memos))
		for id, memo := range s.Memos {
			m := make(map[string]any, len(memo))
			for k, v := range memo {
				m[k] = v
			}
			next.Memos[id] = m
		}
	}
	if s.History != nil {
		next.History = make(map[string][]ChatMessage, len(s.History))
		for id, msgs := range s.History {
			next.History[id] = append([]ChatMessage(nil), msgs...)
		}
	}
	if s.SectionLog != nil {
		next.SectionLog = make(map[string][]SectionInteraction, len(s.SectionLog))
		for id, ins := range s.SectionLog {
			next.SectionLog[id] = append([]SectionInteraction(nil), ins...)
		}
	}
	return &next
}
