package domain

// Kind identifies the behavior of a node in the flow graph.
type Kind string

const (
	// KindStart is the entry point of a flow. It never waits for input.
	KindStart Kind = "start"
	// KindPrompt is a free-form conversational step driven by the language
	// service, optionally gated by a "purpose" classification.
	KindPrompt Kind = "prompt"
	// KindSection binds a sub-conversation to a playable video section.
	KindSection Kind = "section"
	// KindQuestion asks a quiz question and records the answer.
	KindQuestion Kind = "question"
	// KindContent shows a static content item and continues immediately.
	KindContent Kind = "content"
	// KindEnd is terminal.
	KindEnd Kind = "end"
)

// Attribute keys used by the step handlers. Which keys are meaningful
// depends on the node kind.
const (
	AttrPromptText     = "promptText"
	AttrPurpose        = "purpose"
	AttrInitialMessage = "initialMessage"
	AttrLabel          = "label"
	AttrSectionID      = "sectionId"
	AttrQuestionText   = "questionText"
	AttrContentID      = "contentId"
	AttrMessage        = "message"
)

// Node is a typed unit of the flow.
type Node struct {
	ID    string            `json:"id" yaml:"id"`
	Kind  Kind              `json:"kind" yaml:"kind"`
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Attr returns the attribute value for key, or "" if absent.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Edge is a labeled directed connection between two nodes.
// Edges may reference node ids absent from the node set; such edges are
// tolerated at load time and dropped during traversal.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}
