package director

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are the life director of an autonomous digital persona.
Each time you are invoked you decide what the persona does next, in character,
grounded in their city, the local time, the weather, current trends, and what
they have done recently. You may call tools to check context or to apply
money/memory side effects of the activity. When you are done, output ONLY a
JSON object — no markdown, no commentary.`

// buildPrompt renders the planning context for one decision.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Persona: %s, living in %s.\n", req.Persona.Name, req.Persona.City)
	if req.Persona.Bio != nil && *req.Persona.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", *req.Persona.Bio)
	}
	fmt.Fprintf(&b, "Local hour: %02d:00\n", req.LocalHour)
	fmt.Fprintf(&b, "Weather: %s, %.0f°C\n", req.Weather.Description, req.Weather.TempC)
	fmt.Fprintf(&b, "Wallet balance: %.2f\n", req.Persona.CurrentBalance)

	if req.Persona.DailyOutfit != nil {
		o := req.Persona.DailyOutfit
		fmt.Fprintf(&b, "Today's outfit: %s, %s, %s\n", o.Top, o.Bottom, o.Shoes)
	}

	if req.ManualLocation != nil {
		switch *req.ManualLocation {
		case "home":
			b.WriteString("Constraint: the persona is AT HOME right now; plan an at-home activity.\n")
		case "outside":
			b.WriteString("Constraint: the persona is OUT AND ABOUT right now; plan an outdoor activity.\n")
		}
	}

	if len(req.Trends) > 0 {
		b.WriteString("Trending right now:\n")
		for _, t := range req.Trends {
			fmt.Fprintf(&b, "  - %s", t.Query)
			if len(t.News) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(t.News, "; "))
			}
			b.WriteString("\n")
		}
	}

	if len(req.RecentMemories) > 0 {
		b.WriteString("Recent memories, newest first:\n")
		for _, m := range req.RecentMemories {
			fmt.Fprintf(&b, "  - %s\n", m.Description)
		}
	}

	b.WriteString(`
Decide the persona's next activity. Output ONLY a JSON object with this schema:
{
  "title": "<short activity title>",
  "description": "<first-person description, 1-3 sentences>",
  "content_worthy": <true if this moment is worth a photo post>,
  "importance": <1-5>,
  "rest_minutes": <minutes until the next activity, 30-360>,
  "wallet_delta": {"amount": <signed number>, "reason": "<why>"} or null
}`)

	return b.String()
}
