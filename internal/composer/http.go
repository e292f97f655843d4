package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pulseworks/vita-backend/internal/config"
)

// HTTPComposer calls an external image-generation service.
type HTTPComposer struct {
	cfg        config.ComposerConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPComposer creates a composer from config.
func NewHTTPComposer(cfg config.ComposerConfig, logger *slog.Logger) *HTTPComposer {
	return &HTTPComposer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "composer"),
	}
}

type generateRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceAssets []string `json:"reference_assets,omitempty"`
}

type generateResponse struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Compose runs one generation job. Transient upstream errors are retried
// internally with backoff; anything that survives the retries comes back as
// a structured *Error.
func (c *HTTPComposer) Compose(ctx context.Context, req Request) (Result, error) {
	if !c.cfg.Enabled {
		return Result{}, ErrDisabled
	}

	assets := req.ReferenceAssets
	if len(assets) > c.cfg.MaxReferenceAssets {
		assets = assets[:c.cfg.MaxReferenceAssets]
	}

	payload, err := json.Marshal(generateRequest{
		Prompt:          req.Prompt,
		ReferenceAssets: assets,
	})
	if err != nil {
		return Result{}, fmt.Errorf("composer: marshal request: %w", err)
	}

	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/v1/generate", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		c.log.WarnContext(ctx, "generation failed", slog.String("error", err.Error()))
		return Result{}, &Error{Code: "upstream", Message: err.Error()}
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, &Error{Code: "decode", Message: err.Error()}
	}
	if result.Error != nil {
		return Result{}, &Error{Code: result.Error.Code, Message: result.Error.Message}
	}
	if result.URL == "" {
		return Result{}, &Error{Code: "empty", Message: "no asset returned"}
	}

	return Result{URL: result.URL, Caption: result.Caption}, nil
}
