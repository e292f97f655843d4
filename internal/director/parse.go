package director

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pulseworks/vita-backend/internal/domain"
)

// decisionPayload is the JSON schema the model is asked to produce.
type decisionPayload struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ContentWorthy bool    `json:"content_worthy"`
	Importance    int     `json:"importance"`
	RestMinutes   int     `json:"rest_minutes"`
	WalletDelta   *struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	} `json:"wallet_delta"`
}

// parseDecision extracts and validates the decision JSON from raw model text.
func parseDecision(text string) (domain.Decision, error) {
	jsonStr, err := extractJSON(text)
	if err != nil {
		return domain.Decision{}, err
	}

	if !json.Valid([]byte(jsonStr)) {
		return domain.Decision{}, fmt.Errorf("response does not contain valid JSON")
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return domain.Decision{}, fmt.Errorf("decode decision: %w", err)
	}

	if payload.Title == "" || payload.Description == "" {
		return domain.Decision{}, fmt.Errorf("decision missing title or description")
	}

	d := domain.Decision{
		Title:         payload.Title,
		Description:   payload.Description,
		ContentWorthy: payload.ContentWorthy,
		Importance:    payload.Importance,
	}
	if payload.RestMinutes > 0 {
		d.RestFor = time.Duration(payload.RestMinutes) * time.Minute
	} else {
		d.RestFor = defaultRest(payload.ContentWorthy)
	}
	if payload.WalletDelta != nil && payload.WalletDelta.Amount != 0 {
		d.WalletDelta = &domain.WalletDelta{
			Amount: payload.WalletDelta.Amount,
			Reason: payload.WalletDelta.Reason,
		}
	}

	return d, nil
}

// extractJSON finds the first complete JSON object in a string.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return s[start : end+1], nil
}
