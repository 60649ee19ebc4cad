// Package tokenizer provides token counters used to bound chunk sizes.
//
// A Tokenizer must count exactly as the downstream embedding model would and
// must be safe for concurrent use: a single instance is shared by every
// chunker in the process.
package tokenizer

import "fmt"

// Tokenizer counts tokens and exposes the model's context budget.
type Tokenizer interface {
	// CountTokens returns the number of tokens in text. Empty text is 0 tokens.
	CountTokens(text string) int
	// MaxTokens is the model's hard budget. Constant and positive.
	MaxTokens() int
}

// LoadError is returned when a concrete tokenizer cannot be constructed.
type LoadError struct {
	Source string // Model id, encoding name, or file path
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load tokenizer %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DefaultMaxTokens is used when a model does not declare its own budget.
const DefaultMaxTokens = 512

// Estimator approximates token counts from byte length. It needs no model
// files, which makes it useful offline and in tests.
type Estimator struct {
	BytesPerToken int
	Max           int
}

// NewEstimator returns a 4-bytes-per-token estimator with the given budget.
func NewEstimator(maxTokens int) *Estimator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Estimator{BytesPerToken: 4, Max: maxTokens}
}

func (e *Estimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	per := e.BytesPerToken
	if per <= 0 {
		per = 4
	}
	return (len(text) + per - 1) / per
}

func (e *Estimator) MaxTokens() int {
	return e.Max
}
