// Package llm wraps the language-model collaborator behind a single call
// shape: invoke a named prompt template with context text and the node-scoped
// conversation window, get text back. The navigator interprets the text for
// classification calls and uses it verbatim for generation calls.
package llm

import (
	"context"

	"triagemd/pkg"
)

// Client is the capability the navigator and selector need from the language
// model. Implementations must be safe for concurrent use; the fake used in
// tests returns scripted outputs.
type Client interface {
	Invoke(ctx context.Context, kind pkg.PromptKind, contextText string, window []pkg.Turn) (string, error)
}
