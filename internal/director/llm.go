package director

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pulseworks/vita-backend/internal/config"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// LLMDirector drives decisions through Claude with a bounded tool loop.
// Wallet and memory tools are executed through idempotent Effects primitives
// keyed by (cycle, tool-use id), so a replayed planning step is harmless.
type LLMDirector struct {
	client  anthropic.Client
	cfg     config.DirectorConfig
	effects Effects
	log     *slog.Logger
}

// NewLLMDirector creates the Claude-backed director.
func NewLLMDirector(cfg config.DirectorConfig, effects Effects, logger *slog.Logger) *LLMDirector {
	return &LLMDirector{
		client:  anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:     cfg,
		effects: effects,
		log:     logger.With("component", "director"),
	}
}

// Decide runs the tool loop and parses the final decision JSON.
// Callers treat any returned error as "use the ambient fallback"; effects
// already applied through tools stay applied, which is safe because they are
// idempotent per key.
func (d *LLMDirector) Decide(ctx context.Context, req Request) (domain.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
	}

	var finalText string
	for step := 0; step <= d.cfg.MaxToolSteps; step++ {
		msg, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(d.cfg.Model),
			MaxTokens: d.cfg.MaxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: messages,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return domain.Decision{}, fmt.Errorf("director: llm call: %w", err)
		}
		if len(msg.Content) == 0 {
			return domain.Decision{}, fmt.Errorf("director: empty response")
		}

		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				finalText += variant.Text
			case anthropic.ToolUseBlock:
				result, isErr := d.runTool(ctx, req, variant.ID, variant.Name, []byte(variant.JSON.Input.Raw()))
				toolResults = append(toolResults, anthropic.NewToolResultBlock(variant.ID, result, isErr))
			}
		}

		if msg.StopReason != anthropic.StopReasonToolUse || len(toolResults) == 0 {
			break
		}

		messages = append(messages, msg.ToParam(), anthropic.NewUserMessage(toolResults...))
	}

	decision, err := parseDecision(finalText)
	if err != nil {
		d.log.WarnContext(ctx, "decision parse failed",
			slog.String("persona_id", req.Persona.ID.String()),
			slog.String("error", err.Error()),
		)
		return domain.Decision{}, fmt.Errorf("director: %w", err)
	}

	return decision, nil
}

// runTool dispatches one tool call. Tool failures are reported back to the
// model as error results, never as aborted decisions.
func (d *LLMDirector) runTool(ctx context.Context, req Request, toolUseID, name string, input []byte) (string, bool) {
	switch name {
	case toolAdjustWallet:
		var args struct {
			Amount float64 `json:"amount"`
			Reason string  `json:"reason"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "invalid arguments: " + err.Error(), true
		}
		key := fmt.Sprintf("%s/tool-wallet/%s", req.CycleID, toolUseID)
		applied, err := d.effects.AdjustWallet(ctx, req.Persona.ID, key, args.Amount, args.Reason)
		if err != nil {
			return "wallet update failed: " + err.Error(), true
		}
		if !applied {
			return "already applied", false
		}
		return fmt.Sprintf("balance adjusted by %.2f", args.Amount), false

	case toolRecordMemory:
		var args struct {
			Description string `json:"description"`
			Importance  int    `json:"importance"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "invalid arguments: " + err.Error(), true
		}
		if args.Importance < 1 || args.Importance > 5 {
			args.Importance = 3
		}
		key := fmt.Sprintf("%s/tool-memory/%s", req.CycleID, toolUseID)
		created, err := d.effects.RecordMemory(ctx, domain.Memory{
			PersonaID:   req.Persona.ID,
			Kind:        domain.MemorySystem,
			Description: args.Description,
			Importance:  args.Importance,
		}, key)
		if err != nil {
			return "memory write failed: " + err.Error(), true
		}
		if !created {
			return "already recorded", false
		}
		return "memory recorded", false

	case toolGetWeather:
		body, err := json.Marshal(req.Weather)
		if err != nil {
			return "weather unavailable", true
		}
		return string(body), false

	case toolGetTrends:
		body, err := json.Marshal(req.Trends)
		if err != nil {
			return "trends unavailable", true
		}
		return string(body), false
	}

	return "unknown tool " + name, true
}
