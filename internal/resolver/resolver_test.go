package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const testMarker = "I could not find this information in the available documents."

type fakeGen struct {
	richFn   func(ctx context.Context, question, docContext, callerRole string) (string, error)
	simpleFn func(ctx context.Context, question, callerRole string) (string, error)
}

func (g *fakeGen) GenerateRich(ctx context.Context, question, docContext, callerRole string) (string, error) {
	return g.richFn(ctx, question, docContext, callerRole)
}

func (g *fakeGen) GenerateSimple(ctx context.Context, question, callerRole string) (string, error) {
	return g.simpleFn(ctx, question, callerRole)
}

type fakeIndex struct {
	searchFn func(ctx context.Context, question string) (string, error)
	calls    int
}

func (f *fakeIndex) Search(ctx context.Context, question string) (string, error) {
	f.calls++
	return f.searchFn(ctx, question)
}

var testCaller = Caller{ID: "u1", DisplayName: "Test User", Role: "standard"}

func TestResolve_PrimarySuccess(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, docContext, _ string) (string, error) {
			if docContext == "" {
				t.Error("expected retrieved context to be passed to rich generation")
			}
			return "Working hours are 09:00-18:00.", nil
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			t.Error("secondary tier must not run after primary success")
			return "", nil
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "Working Hours Policy:\nOffice hours are 09:00-18:00 on weekdays.", nil
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "What are the working hours?", testCaller)

	if out.Tier != TierPrimaryAI {
		t.Errorf("tier = %q, want %q", out.Tier, TierPrimaryAI)
	}
	if out.Answer != "Working hours are 09:00-18:00." {
		t.Errorf("answer = %q", out.Answer)
	}
	if len(out.Errors) != 0 {
		t.Errorf("errors = %v, want none", out.Errors)
	}
}

func TestResolve_MarkerAdvancesToSecondary(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			return "Unfortunately, " + testMarker, nil
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			return "General answer without context.", nil
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "synopsis", nil
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierSecondaryAI {
		t.Fatalf("tier = %q, want %q", out.Tier, TierSecondaryAI)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly the primary entry", out.Errors)
	}
	if out.Errors[0].Tier != TierPrimaryAI {
		t.Errorf("errors[0].Tier = %q, want %q", out.Errors[0].Tier, TierPrimaryAI)
	}
	if out.Errors[0].Message != markerMessage {
		t.Errorf("errors[0].Message = %q, want %q", out.Errors[0].Message, markerMessage)
	}
}

func TestResolve_FaultAdvancesToSecondary(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			return "", errors.New("quota exceeded")
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			return "Fallback answer.", nil
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "synopsis", nil
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierSecondaryAI {
		t.Fatalf("tier = %q, want %q", out.Tier, TierSecondaryAI)
	}
	if len(out.Errors) != 1 || out.Errors[0].Message != "quota exceeded" {
		t.Errorf("errors = %v, want single quota error", out.Errors)
	}
}

func TestResolve_BothAITiersFailFallsToSearch(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			return "", errors.New("rich down")
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			return testMarker, nil
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "Working Hours Policy:\n09:00-18:00", nil
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierKnowledgeSearch {
		t.Fatalf("tier = %q, want %q", out.Tier, TierKnowledgeSearch)
	}
	if !strings.HasPrefix(out.Answer, foundPrefix) {
		t.Errorf("answer = %q, want %q prefix", out.Answer, foundPrefix)
	}
	if !strings.Contains(out.Answer, "09:00-18:00") {
		t.Errorf("answer = %q, want document content included", out.Answer)
	}
	if len(out.Errors) != 2 {
		t.Fatalf("errors = %v, want primary and secondary entries", out.Errors)
	}
	if out.Errors[0].Tier != TierPrimaryAI || out.Errors[1].Tier != TierSecondaryAI {
		t.Errorf("error order = [%q, %q], want [%q, %q]",
			out.Errors[0].Tier, out.Errors[1].Tier, TierPrimaryAI, TierSecondaryAI)
	}
}

func TestResolve_TotalFailure(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			return "", errors.New("rich down")
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("simple down")
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("database locked")
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierFailed {
		t.Fatalf("tier = %q, want %q", out.Tier, TierFailed)
	}
	if len(out.Errors) != 3 {
		t.Fatalf("errors = %v, want one per tier", out.Errors)
	}
	if out.Answer == "" {
		t.Fatal("failed outcome must carry diagnostic text")
	}
	for _, te := range out.Errors {
		if !strings.Contains(out.Answer, string(te.Tier)) {
			t.Errorf("answer %q missing tier %q", out.Answer, te.Tier)
		}
		if !strings.Contains(out.Answer, te.Message) {
			t.Errorf("answer %q missing message %q", out.Answer, te.Message)
		}
	}
}

func TestResolve_NilGeneratorSkipsAITiers(t *testing.T) {
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "synopsis", nil
	}}

	r := New(nil, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierKnowledgeSearch {
		t.Fatalf("tier = %q, want %q", out.Tier, TierKnowledgeSearch)
	}
	if len(out.Errors) != 0 {
		t.Errorf("errors = %v, want none when AI tiers are skipped", out.Errors)
	}
	if index.calls != 1 {
		t.Errorf("search calls = %d, want 1", index.calls)
	}
}

func TestResolve_ContextRetrievalErrorDegradesToEmptyContext(t *testing.T) {
	first := true
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		if first {
			first = false
			return "", errors.New("transient read error")
		}
		return "synopsis", nil
	}}
	gen := &fakeGen{
		richFn: func(_ context.Context, _, docContext, _ string) (string, error) {
			if docContext != "" {
				t.Errorf("docContext = %q, want empty after retrieval failure", docContext)
			}
			return "Answer without context.", nil
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			t.Error("secondary tier must not run")
			return "", nil
		},
	}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierPrimaryAI {
		t.Errorf("tier = %q, want %q: retrieval failure alone must not fail the tier", out.Tier, TierPrimaryAI)
	}
	if len(out.Errors) != 0 {
		t.Errorf("errors = %v, want none", out.Errors)
	}
}

func TestResolve_EmptyMarkerDisablesContentCheck(t *testing.T) {
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			return testMarker, nil
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "synopsis", nil
	}}

	r := New(gen, index, "")
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierPrimaryAI {
		t.Errorf("tier = %q, want %q: empty marker means only faults advance tiers", out.Tier, TierPrimaryAI)
	}
}

func TestResolve_EachTierAttemptedAtMostOnce(t *testing.T) {
	richCalls, simpleCalls := 0, 0
	gen := &fakeGen{
		richFn: func(_ context.Context, _, _, _ string) (string, error) {
			richCalls++
			return "", errors.New("down")
		},
		simpleFn: func(_ context.Context, _, _ string) (string, error) {
			simpleCalls++
			return "", errors.New("down")
		},
	}
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("down")
	}}

	r := New(gen, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if richCalls != 1 {
		t.Errorf("rich calls = %d, want 1", richCalls)
	}
	if simpleCalls != 1 {
		t.Errorf("simple calls = %d, want 1", simpleCalls)
	}
	// One call for context retrieval, one for the knowledge-search tier.
	if index.calls != 2 {
		t.Errorf("search calls = %d, want 2", index.calls)
	}
	if out.Tier != TierFailed {
		t.Errorf("tier = %q, want %q", out.Tier, TierFailed)
	}
}

func TestResolve_NoMatchesIsStillAnAnswer(t *testing.T) {
	index := &fakeIndex{searchFn: func(_ context.Context, _ string) (string, error) {
		return "No matching documents were found.", nil
	}}

	r := New(nil, index, testMarker)
	out := r.Resolve(context.Background(), "q", testCaller)

	if out.Tier != TierKnowledgeSearch {
		t.Errorf("tier = %q, want %q: empty result set is not a fault", out.Tier, TierKnowledgeSearch)
	}
}
