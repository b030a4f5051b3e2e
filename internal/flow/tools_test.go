package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kursio/weft/pkg/domain"
)

func TestDispatchJumpToTime(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("jump_to_time", map[string]any{
		"time_seconds": 42,
		"message":      "",
	})

	assert.Equal(t, domain.ActionJumpToTime, out.Action)
	assert.EqualValues(t, 42, out.Fields["time_seconds"])
	assert.Contains(t, out.Message, "42")
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("unknown_tool", map[string]any{})

	assert.Equal(t, domain.ActionRespond, out.Action)
	assert.Contains(t, out.Message, "unknown_tool")
}

func TestDispatchControlVideo(t *testing.T) {
	d := NewDispatcher()

	for name, want := range map[string]string{
		"play":    domain.ActionPlay,
		"pause":   domain.ActionPause,
		"stop":    domain.ActionStop,
		"restart": domain.ActionRestart,
	} {
		out := d.Dispatch("control_video", map[string]any{"action": name})
		assert.Equal(t, want, out.Action)
	}

	out := d.Dispatch("control_video", map[string]any{"action": "rewind"})
	assert.Equal(t, domain.ActionRespond, out.Action)
	assert.Contains(t, out.Message, "rewind")
}

func TestDispatchTranslateContentNormalizesType(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("translate_content", map[string]any{
		"target_language": "en",
		"content_type":    "everything",
	})

	assert.Equal(t, domain.ActionTranslateContent, out.Action)
	assert.Equal(t, "content", out.Fields["content_type"])
	assert.Equal(t, "en", out.Fields["target_language"])
}

func TestDispatchShowContentDefaultMessage(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("show_content", map[string]any{"content_id": "overview"})

	assert.Equal(t, domain.ActionShowContent, out.Action)
	assert.Equal(t, "overview", out.Fields["content_id"])
	assert.Contains(t, out.Message, "overview")
}

func TestDispatchMalformedArgsDegrade(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("jump_to_time", map[string]any{"time_seconds": "soon"})

	assert.Equal(t, domain.ActionRespond, out.Action)
	assert.NotEmpty(t, out.Message)
}

func TestDispatchNavigateToNode(t *testing.T) {
	d := NewDispatcher()

	out := d.Dispatch("navigate_to_node", map[string]any{
		"target_node_id": "sec2",
		"reason":         "you asked about the next topic",
		"return_after":   true,
	})

	assert.Equal(t, domain.ActionNavigateToNode, out.Action)
	assert.Equal(t, "sec2", out.Fields["target_node_id"])
	assert.Equal(t, true, out.Fields["return_after"])
}
