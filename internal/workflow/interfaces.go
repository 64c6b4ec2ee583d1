// Package workflow provides the commit workflow orchestration logic.
package workflow

import (
	"context"

	"github.com/samzong/aic/internal/llm"
)

// GitClient abstracts git operations for testability.
type GitClient interface {
	AddAll(ctx context.Context) error
	StagedDiff(ctx context.Context) (string, error)
	Commit(ctx context.Context, message string, args ...string) error
	Push(ctx context.Context) error
}

// Generator abstracts the generation service for testability.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// PromptBuilder turns a staged diff into the prompt sent to the generator.
type PromptBuilder interface {
	Build(diff, language string) (string, error)
}
