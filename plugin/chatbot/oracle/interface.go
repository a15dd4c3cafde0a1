// Package oracle contains the best-effort external lookups the resolver can
// fall back to: live weather, generative completion and encyclopedic
// summaries. Every oracle applies a bounded timeout and reports failures as
// errors the resolver can recover from; none of them panics or blocks
// indefinitely.
package oracle

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Weather looks up current conditions for a city.
type Weather interface {
	CurrentConditions(ctx context.Context, city string) (string, error)
}

// Generative produces a free-text completion for a prompt.
type Generative interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Encyclopedia looks up a short summary for a search phrase. Besides plain
// transport failures it distinguishes two semantic outcomes: ErrNotFound and
// DisambiguationError.
type Encyclopedia interface {
	Summarize(ctx context.Context, query string) (string, error)
}

// ErrNotConfigured marks an oracle whose credential or endpoint is absent.
// The resolver treats it like any other failure.
var ErrNotConfigured = errors.New("oracle not configured")

// ErrNotFound marks an encyclopedia query with no matching article.
var ErrNotFound = errors.New("no article found")

// DisambiguationError reports that an encyclopedia query matched several
// articles. Candidates carries the alternative titles, best first.
type DisambiguationError struct {
	Query      string
	Candidates []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("query %q is ambiguous (%d candidates)", e.Query, len(e.Candidates))
}
