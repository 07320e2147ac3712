package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBudgetExceeded means the mandatory part of a prompt alone does not fit the
	// context window. Retrying cannot help; the task has to be narrowed.
	ErrBudgetExceeded = errors.New("context budget exceeded")

	// ErrGenerationUnavailable is a transient provider failure (rate limit, 5xx, network).
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrGenerationRejected means the provider refused the request as sent.
	ErrGenerationRejected = errors.New("generation rejected")

	// ErrMalformedOutput means the completion came back but lacks the structure the caller asked for.
	ErrMalformedOutput = errors.New("malformed generation output")
)

// IsTransient reports whether a failed call may succeed if repeated unchanged.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGenerationUnavailable) || errors.Is(err, ErrMalformedOutput)
}

// classifyStatus maps a provider HTTP status onto the generation error taxonomy.
func classifyStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status >= 500:
		return fmt.Errorf("%s: %w: %w", provider, ErrGenerationUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", provider, ErrGenerationRejected, err)
	}
}

// classifyTransport handles errors that carry no API status.
func classifyTransport(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrGenerationUnavailable, err)
}
