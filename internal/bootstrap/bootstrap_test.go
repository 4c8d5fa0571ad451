package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mammadli/askdesk/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{}
	cfg.Storage.DataDir = t.TempDir()
	cfg.Knowledge.MaxResults = 5
	cfg.Gemini.RichModel = "gemini-2.5-flash"
	cfg.Gemini.FastModel = "gemini-2.5-flash-lite"
	cfg.Gemini.FailureMarker = config.DefaultFailureMarker
	return cfg
}

func TestRun_CoreReadyWithoutCredential(t *testing.T) {
	cfg := testConfig(t)

	st := Run(context.Background(), cfg)
	t.Cleanup(func() { st.Close() })

	for _, k := range []Kind{KindDocumentStore, KindKnowledgeIndex, KindUserStore} {
		if got := st.Slot(k).Status; got != StatusReady {
			t.Errorf("slot %s = %v, want ready (reason: %s)", k, got, st.Slot(k).Reason)
		}
	}

	ai := st.Slot(KindAIClient)
	if ai.Status != StatusFailed {
		t.Fatalf("ai_client = %v, want failed without credential", ai.Status)
	}
	if !strings.Contains(ai.Reason, "credential not configured") {
		t.Errorf("ai_client reason = %q, want credential message", ai.Reason)
	}

	if !st.ComponentsReady() {
		t.Error("ComponentsReady() = false; a missing AI credential must not lower readiness")
	}
	if st.Assistant != nil {
		t.Error("Assistant must be nil when its slot failed")
	}
	if st.Knowledge == nil || st.Store == nil || st.Docs == nil || st.Users == nil {
		t.Error("ready slots must have constructed instances")
	}
}

func TestRun_StorageFailureIsIsolated(t *testing.T) {
	cfg := testConfig(t)

	// A regular file where the data dir should be makes every directory
	// creation under it fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Storage.DataDir = blocked

	st := Run(context.Background(), cfg)
	t.Cleanup(func() { st.Close() })

	if st.Slot(KindDocumentStore).Status != StatusFailed {
		t.Error("document_store should fail under an unusable data dir")
	}
	if st.Slot(KindKnowledgeIndex).Status != StatusFailed {
		t.Error("knowledge_index should fail under an unusable data dir")
	}

	// The user store records its own failure instead of inheriting the
	// knowledge index's.
	users := st.Slot(KindUserStore)
	if users.Status != StatusFailed {
		t.Fatalf("user_store = %v, want failed", users.Status)
	}
	if users.Reason == "" {
		t.Error("failed slot must carry a reason")
	}

	if st.ComponentsReady() {
		t.Error("ComponentsReady() = true with core subsystems down")
	}
}

func TestRun_SlotsOrderedByConstruction(t *testing.T) {
	cfg := testConfig(t)

	st := Run(context.Background(), cfg)
	t.Cleanup(func() { st.Close() })

	slots := st.Slots()
	if len(slots) != len(Kinds) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(Kinds))
	}
	for i, k := range Kinds {
		if slots[i].Kind != k {
			t.Errorf("slots[%d].Kind = %s, want %s", i, slots[i].Kind, k)
		}
	}
}

func TestStatus_String(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{StatusUninitialized, "uninitialized"},
		{StatusReady, "ready"},
		{StatusFailed, "failed"},
	}
	for _, c := range cases {
		if got := c.status.String(); got != c.want {
			t.Errorf("Status(%d).String() = %q, want %q", c.status, got, c.want)
		}
	}
}
