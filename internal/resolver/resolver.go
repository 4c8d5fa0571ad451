// Package resolver answers a question by trying progressively simpler
// strategies: a context-rich AI answer, a plain AI answer, then direct
// knowledge search. It is a total function over any combination of
// subsystem availability; failures are collected, never propagated.
package resolver

import (
	"context"
	"log/slog"
	"strings"
)

// Tier names one resolution strategy.
type Tier string

const (
	TierPrimaryAI       Tier = "primary_ai"
	TierSecondaryAI     Tier = "secondary_ai"
	TierKnowledgeSearch Tier = "knowledge_search"
	TierFailed          Tier = "failed"
)

// Caller identifies who is asking. Supplied per request by the HTTP
// layer; the resolver never stores it.
type Caller struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// TierError records why one tier did not produce an acceptable answer.
type TierError struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
}

// Outcome is the result of one resolution pass. Answer is always
// non-empty: on total failure it carries the aggregated diagnostics.
// Errors holds one entry per tier attempted before the successful one.
type Outcome struct {
	Answer string      `json:"answer"`
	Tier   Tier        `json:"tier"`
	Errors []TierError `json:"errors,omitempty"`
}

// Generator is the AI client capability the resolver consumes.
type Generator interface {
	GenerateRich(ctx context.Context, question, docContext, callerRole string) (string, error)
	GenerateSimple(ctx context.Context, question, callerRole string) (string, error)
}

// Searcher is the knowledge index capability. An empty result set is an
// answer, not an error; Search fails only on underlying read errors.
type Searcher interface {
	Search(ctx context.Context, question string) (string, error)
}

// foundPrefix frames direct search results so the reader knows no
// generation happened.
const foundPrefix = "Results found in the document base:\n\n"

// markerMessage is recorded when an answer contained the generic failure
// marker rather than a runtime fault.
const markerMessage = "answer contained the generic failure marker"

// Resolver runs the tier ladder. gen may be nil (AI client not ready), in
// which case resolution starts at the knowledge-search tier. index must
// be non-nil; callers guard requests behind component readiness.
type Resolver struct {
	gen    Generator
	index  Searcher
	marker string
}

// New creates a Resolver. marker is the AI client's generic-failure
// phrase; an empty marker disables the content check so only faults
// advance tiers.
func New(gen Generator, index Searcher, marker string) *Resolver {
	return &Resolver{gen: gen, index: index, marker: marker}
}

// Resolve runs one resolution pass. Each tier is attempted at most once;
// the first acceptable answer wins. It never panics or returns an error:
// even total failure produces an Outcome with diagnostic text.
func (r *Resolver) Resolve(ctx context.Context, question string, caller Caller) Outcome {
	var tierErrs []TierError

	if r.gen != nil {
		// PrimaryAI: rich generation over retrieved context. A context
		// retrieval error degrades to an empty context; only the
		// generation call decides this tier's outcome.
		docContext, err := r.index.Search(ctx, question)
		if err != nil {
			slog.Debug("context retrieval failed, generating without context", "error", err)
			docContext = ""
		}

		text, err := r.gen.GenerateRich(ctx, question, docContext, caller.Role)
		if msg, bad := r.unacceptable(text, err); bad {
			tierErrs = append(tierErrs, TierError{Tier: TierPrimaryAI, Message: msg})
		} else {
			return Outcome{Answer: text, Tier: TierPrimaryAI}
		}

		// SecondaryAI: same client, no retrieved context.
		text, err = r.gen.GenerateSimple(ctx, question, caller.Role)
		if msg, bad := r.unacceptable(text, err); bad {
			tierErrs = append(tierErrs, TierError{Tier: TierSecondaryAI, Message: msg})
		} else {
			return Outcome{Answer: text, Tier: TierSecondaryAI, Errors: tierErrs}
		}
	}

	// KnowledgeSearch: pure retrieval, acceptable unless the index itself
	// faults. No matches is still an answer.
	synopsis, err := r.index.Search(ctx, question)
	if err == nil {
		return Outcome{Answer: foundPrefix + synopsis, Tier: TierKnowledgeSearch, Errors: tierErrs}
	}
	tierErrs = append(tierErrs, TierError{Tier: TierKnowledgeSearch, Message: err.Error()})

	return Outcome{Answer: aggregate(tierErrs), Tier: TierFailed, Errors: tierErrs}
}

// unacceptable is the single acceptability predicate for AI answers: a
// runtime fault or the presence of the generic failure marker.
func (r *Resolver) unacceptable(text string, err error) (string, bool) {
	if err != nil {
		return err.Error(), true
	}
	if r.marker != "" && strings.Contains(text, r.marker) {
		return markerMessage, true
	}
	return "", false
}

// aggregate turns the collected tier errors into the diagnostic answer
// text for a failed resolution.
func aggregate(tierErrs []TierError) string {
	var sb strings.Builder
	sb.WriteString("Could not answer the question.")
	for _, te := range tierErrs {
		sb.WriteString(" ")
		sb.WriteString(string(te.Tier))
		sb.WriteString(": ")
		sb.WriteString(te.Message)
		sb.WriteString(".")
	}
	return sb.String()
}
