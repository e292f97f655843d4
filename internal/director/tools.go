package director

import anthropic "github.com/anthropics/anthropic-sdk-go"

const (
	toolGetWeather   = "get_weather"
	toolGetTrends    = "get_trends"
	toolAdjustWallet = "adjust_wallet"
	toolRecordMemory = "record_memory"
)

// toolDefinitions declares the tools the model may call while planning.
func toolDefinitions() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        toolGetWeather,
				Description: anthropic.String("Get the current weather in the persona's city."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        toolGetTrends,
				Description: anthropic.String("Get trending topics and related news for the persona's country."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name: toolAdjustWallet,
				Description: anthropic.String(
					"Spend or earn money as part of the planned activity. " +
						"Negative amount spends, positive amount earns."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						"amount": map[string]any{
							"type":        "number",
							"description": "Signed amount in the persona's currency.",
						},
						"reason": map[string]any{
							"type":        "string",
							"description": "Short reason, e.g. 'bought concert tickets'.",
						},
					},
					Required: []string{"amount", "reason"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name: toolRecordMemory,
				Description: anthropic.String(
					"Record a notable side observation as a memory, separate from the main activity."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						"description": map[string]any{
							"type":        "string",
							"description": "First-person description of the observation.",
						},
						"importance": map[string]any{
							"type":        "integer",
							"description": "Importance from 1 (trivial) to 5 (life event).",
						},
					},
					Required: []string{"description"},
				},
			},
		},
	}
}
