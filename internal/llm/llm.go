// Package llm defines the language-model capability the pipeline depends on
// and the legal prompts built on top of it.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated marks credential failures. The pipeline treats
	// them as fatal instead of degrading the affected page or document.
	ErrUnauthenticated = errors.New("llm: authentication failed")
	ErrEmptyResponse   = errors.New("llm: empty response")
)

// Attachment is inline binary content sent with a prompt.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// Request is a single-turn generation request. Providers route requests
// carrying an attachment to their vision model.
type Request struct {
	Prompt      string
	Attachment  *Attachment
	Temperature float32
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
