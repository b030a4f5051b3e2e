package flow

import "github.com/kursio/weft/pkg/llm"

// baseCatalog is the tool set advertised to the language service on prompt
// steps. Section steps add the navigation tools on top.
func baseCatalog() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        "show_content",
			Description: "Show a content item to the user as an overlay.",
			Parameters: objectSchema(map[string]any{
				"content_id": stringProp("Identifier of the content item to show"),
				"message":    stringProp("Short message to display alongside the content"),
			}, "content_id"),
		},
		{
			Name:        "translate_content",
			Description: "Translate the current content and/or subtitles to another language.",
			Parameters: objectSchema(map[string]any{
				"target_language": stringProp("Target language code or name"),
				"content_type": map[string]any{
					"type":        "string",
					"enum":        []string{"content", "subtitles", "both"},
					"description": "What to translate",
				},
			}, "target_language"),
		},
		{
			Name:        "regenerate_content",
			Description: "Regenerate the current content, optionally in a different style.",
			Parameters: objectSchema(map[string]any{
				"content_type": stringProp("Kind of content to regenerate"),
				"style":        stringProp("Optional style hint"),
			}, "content_type"),
		},
		{
			Name:        "jump_to_time",
			Description: "Jump the video to a specific timestamp.",
			Parameters: objectSchema(map[string]any{
				"time_seconds": map[string]any{
					"type":        "number",
					"description": "Target position in seconds",
				},
				"message": stringProp("Short message to display while jumping"),
			}, "time_seconds"),
		},
		{
			Name:        "show_overlay_list",
			Description: "Show the overlay list of topics in this training.",
			Parameters: objectSchema(map[string]any{
				"message": stringProp("Short message to display with the list"),
			}),
		},
		{
			Name:        "control_video",
			Description: "Control video playback.",
			Parameters: objectSchema(map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"play", "pause", "stop", "restart"},
					"description": "Playback action to perform",
				},
				"message": stringProp("Short message to display"),
			}, "action"),
		},
	}
}

// sectionCatalog extends the base catalog with section-scoped navigation.
func sectionCatalog() []llm.ToolSpec {
	return append(baseCatalog(),
		llm.ToolSpec{
			Name:        "navigate_to_node",
			Description: "Temporarily or permanently move the conversation to another step of the flow.",
			Parameters: objectSchema(map[string]any{
				"target_node_id": stringProp("Id of the step to navigate to"),
				"reason":         stringProp("Why the navigation happens"),
				"return_after": map[string]any{
					"type":        "boolean",
					"description": "Return to the current section after the detour",
				},
			}, "target_node_id"),
		},
		llm.ToolSpec{
			Name:        "return_to_section",
			Description: "Return to the section that was active before a detour.",
			Parameters: objectSchema(map[string]any{
				"message": stringProp("Short message to display on return"),
			}),
		},
	)
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}
