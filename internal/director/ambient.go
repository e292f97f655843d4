package director

import (
	"context"
	"time"

	"github.com/pulseworks/vita-backend/internal/domain"
)

// AmbientDirector always decides ambiently. It is the director of last
// resort, used when no model is configured.
type AmbientDirector struct{}

func (AmbientDirector) Decide(_ context.Context, req Request) (domain.Decision, error) {
	return AmbientDecision(req.LocalHour), nil
}

// ambient activity descriptions by rough time of day. Used when the decision
// engine times out or returns garbage: the cycle must not stall.
var ambientByDaypart = []struct {
	fromHour int
	title    string
	desc     string
}{
	{0, "quiet night in", "I stayed in tonight, reading and winding down."},
	{7, "slow morning", "I had a slow morning with coffee and some journaling."},
	{12, "afternoon walk", "I took a long walk around the neighborhood and people-watched."},
	{18, "evening at home", "I cooked dinner and caught up on messages."},
}

const ambientRest = 2 * time.Hour

// AmbientDecision is the neutral, non-content-worthy fallback decision.
func AmbientDecision(localHour int) domain.Decision {
	chosen := ambientByDaypart[0]
	for _, d := range ambientByDaypart {
		if localHour >= d.fromHour {
			chosen = d
		}
	}

	return domain.Decision{
		Title:       chosen.title,
		Description: chosen.desc,
		Importance:  2,
		RestFor:     ambientRest,
		Ambient:     true,
	}
}

// defaultRest derives a rest duration when the model omits one.
// Content-worthy activities run shorter cycles so the post lands while the
// moment is fresh.
func defaultRest(contentWorthy bool) time.Duration {
	if contentWorthy {
		return 90 * time.Minute
	}
	return ambientRest
}
