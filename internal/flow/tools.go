package flow

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/domain"
)

// Outcome is the action descriptor produced by dispatching one tool call.
type Outcome struct {
	Action  string
	Message string
	Fields  map[string]any
}

// Dispatcher maps (toolName, arguments) pairs to action descriptors. It is a
// pure mapping: unknown tools and malformed arguments degrade to a generic
// respond action and never propagate an error.
type Dispatcher struct {
	logger *slog.Logger
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets a structured logger for absorbed failures.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type showContentArgs struct {
	ContentID string `mapstructure:"content_id"`
	Message   string `mapstructure:"message"`
}

type translateContentArgs struct {
	TargetLanguage string `mapstructure:"target_language"`
	ContentType    string `mapstructure:"content_type"`
}

type regenerateContentArgs struct {
	ContentType string `mapstructure:"content_type"`
	Style       string `mapstructure:"style"`
}

type jumpToTimeArgs struct {
	TimeSeconds float64 `mapstructure:"time_seconds"`
	Message     string  `mapstructure:"message"`
}

type messageArgs struct {
	Message string `mapstructure:"message"`
}

type controlVideoArgs struct {
	Action  string `mapstructure:"action"`
	Message string `mapstructure:"message"`
}

type navigateArgs struct {
	TargetNodeID string `mapstructure:"target_node_id"`
	Reason       string `mapstructure:"reason"`
	ReturnAfter  bool   `mapstructure:"return_after"`
}

// Dispatch executes one tool call and returns its action descriptor.
func (d *Dispatcher) Dispatch(name string, args map[string]any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool dispatch panicked", "tool", name, "panic", r)
			out = d.failure(name)
		}
	}()

	switch name {
	case "show_content":
		var a showContentArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		msg := a.Message
		if msg == "" {
			msg = fmt.Sprintf("Showing content: %s", a.ContentID)
		}
		return Outcome{
			Action:  domain.ActionShowContent,
			Message: msg,
			Fields:  map[string]any{"content_id": a.ContentID},
		}

	case "translate_content":
		var a translateContentArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		switch a.ContentType {
		case "content", "subtitles", "both":
		default:
			a.ContentType = "content"
		}
		return Outcome{
			Action:  domain.ActionTranslateContent,
			Message: fmt.Sprintf("Translating %s to %s", a.ContentType, a.TargetLanguage),
			Fields: map[string]any{
				"target_language": a.TargetLanguage,
				"content_type":    a.ContentType,
			},
		}

	case "regenerate_content":
		var a regenerateContentArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		fields := map[string]any{"content_type": a.ContentType}
		if a.Style != "" {
			fields["style"] = a.Style
		}
		return Outcome{
			Action:  domain.ActionRegenerateContent,
			Message: fmt.Sprintf("Regenerating %s", a.ContentType),
			Fields:  fields,
		}

	case "jump_to_time":
		var a jumpToTimeArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		msg := a.Message
		if msg == "" {
			msg = fmt.Sprintf("Jumping to %.0f seconds", a.TimeSeconds)
		}
		return Outcome{
			Action:  domain.ActionJumpToTime,
			Message: msg,
			Fields:  map[string]any{"time_seconds": a.TimeSeconds},
		}

	case "show_overlay_list":
		var a messageArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		msg := a.Message
		if msg == "" {
			msg = "Here is the list of topics in this training."
		}
		return Outcome{Action: domain.ActionShowOverlayList, Message: msg}

	case "control_video":
		var a controlVideoArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		action, ok := videoActions[a.Action]
		if !ok {
			return Outcome{
				Action:  domain.ActionRespond,
				Message: fmt.Sprintf("I can't %q the video; try play, pause, stop or restart.", a.Action),
			}
		}
		return Outcome{Action: action, Message: a.Message}

	case "navigate_to_node":
		var a navigateArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		return Outcome{
			Action:  domain.ActionNavigateToNode,
			Message: a.Reason,
			Fields: map[string]any{
				"target_node_id": a.TargetNodeID,
				"reason":         a.Reason,
				"return_after":   a.ReturnAfter,
			},
		}

	case "return_to_section":
		var a messageArgs
		if err := decodeArgs(args, &a); err != nil {
			return d.badArgs(name, err)
		}
		return Outcome{Action: domain.ActionReturnToSection, Message: a.Message}

	default:
		return Outcome{
			Action:  domain.ActionRespond,
			Message: fmt.Sprintf("I don't know how to handle the tool %q yet.", name),
			Fields:  map[string]any{"tool": name},
		}
	}
}

// videoActions maps the control_video intent to the canonical action name.
var videoActions = map[string]string{
	"play":    domain.ActionPlay,
	"pause":   domain.ActionPause,
	"stop":    domain.ActionStop,
	"restart": domain.ActionRestart,
}

func (d *Dispatcher) badArgs(name string, err error) Outcome {
	d.logger.Warn("malformed tool arguments", "tool", name, "err", err)
	return d.failure(name)
}

func (d *Dispatcher) failure(name string) Outcome {
	return Outcome{
		Action:  domain.ActionRespond,
		Message: fmt.Sprintf("Something went wrong while running %q; let's continue.", name),
		Fields:  map[string]any{"tool": name},
	}
}

// decodeArgs decodes a raw argument map into a typed struct. Weak typing is
// enabled because models frequently send numbers as strings.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
