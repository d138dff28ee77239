// Package ai wraps the authenticity-scoring model behind a small capability
// interface so the verification service can be tested without the real model.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the oracle declines to render an opinion:
// no model configured, rate limited, or upstream budget exhausted. Callers
// must treat this as absence of a signal, never as evidence of fraud.
var ErrUnavailable = errors.New("ai: oracle unavailable")

// Request carries the image preview and the contextual file facts sent to
// the scoring model.
type Request struct {
	// PreviewBase64 is a bounded base64-encoded image preview.
	PreviewBase64 string
	PreviewMime   string
	FileName      string
	FileSize      int64
	Producer      string
	Creator       string
}

// Opinion is the structured verdict returned by the model. Authentic is a
// pointer because the model may decline to commit to a binary call.
type Opinion struct {
	Authentic  *bool    `json:"authentic"`
	Confidence int      `json:"confidence"`
	Issues     []string `json:"issues"`
	Summary    string   `json:"summary"`
}

// Oracle scores the authenticity of an uploaded document preview.
type Oracle interface {
	ScoreAuthenticity(ctx context.Context, req Request) (*Opinion, error)
}

// Disabled is the Oracle used when no model is configured; every request is
// answered with ErrUnavailable.
type Disabled struct{}

func (Disabled) ScoreAuthenticity(ctx context.Context, req Request) (*Opinion, error) {
	return nil, ErrUnavailable
}
