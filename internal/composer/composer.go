// Package composer generates content assets (images + captions) for
// content-worthy cycles. Generation is a black box to the scheduler: it
// either returns an asset or a structured failure, and it is invoked at most
// once per CREATING entry.
package composer

import (
	"context"
	"errors"
	"fmt"
)

// Request describes one generation job.
type Request struct {
	Prompt string
	// ReferenceAssets are persona face/room image URLs, at most 14.
	ReferenceAssets []string
}

// Result is a successfully generated asset.
type Result struct {
	URL     string
	Caption string
}

// ErrDisabled is returned when content generation is turned off by config.
var ErrDisabled = errors.New("composer disabled")

// Error is a structured generation failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("composer: %s: %s", e.Code, e.Message)
}

// Composer generates a content asset or fails. Internal retries are the
// implementation's concern; callers never retry a failed Compose.
type Composer interface {
	Compose(ctx context.Context, req Request) (Result, error)
}
