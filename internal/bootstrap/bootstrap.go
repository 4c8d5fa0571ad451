// Package bootstrap brings up the service's subsystems under
// partial-failure conditions. Each subsystem gets its own slot that ends
// up atomically Ready or Failed; a failure is recorded and the sequence
// continues, so one broken subsystem never takes down the process or
// undoes an earlier success.
package bootstrap

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/mammadli/askdesk/internal/assistant"
	"github.com/mammadli/askdesk/internal/config"
	"github.com/mammadli/askdesk/internal/docstore"
	"github.com/mammadli/askdesk/internal/knowledge"
	"github.com/mammadli/askdesk/internal/storage"
	"github.com/mammadli/askdesk/internal/userstore"
)

// Kind identifies one bootstrap-managed subsystem.
type Kind string

const (
	KindDocumentStore  Kind = "document_store"
	KindKnowledgeIndex Kind = "knowledge_index"
	KindUserStore      Kind = "user_store"
	KindAIClient       Kind = "ai_client"
)

// Kinds lists the subsystems in construction order.
var Kinds = []Kind{KindDocumentStore, KindKnowledgeIndex, KindUserStore, KindAIClient}

// Status is a subsystem slot's readiness state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Slot records one subsystem's outcome. Reason is set iff Status is
// StatusFailed.
type Slot struct {
	Kind   Kind
	Status Status
	Reason string
}

// SystemState holds every slot plus the constructed instances. It is
// built once at process start and read-only afterwards, so handlers can
// share it without locking.
type SystemState struct {
	slots map[Kind]Slot

	Docs      *docstore.Manager
	Store     *storage.Store
	Knowledge *knowledge.Index
	Users     *userstore.Store
	Assistant *assistant.Client
}

// Slot returns the recorded state for one subsystem kind.
func (st *SystemState) Slot(k Kind) Slot {
	return st.slots[k]
}

// Slots returns all slots in construction order.
func (st *SystemState) Slots() []Slot {
	out := make([]Slot, len(Kinds))
	for i, k := range Kinds {
		out[i] = st.slots[k]
	}
	return out
}

// ComponentsReady reports whether the baseline contract is met: document
// store and knowledge index Ready. The user store and AI client are
// optional and may be Failed without lowering readiness.
func (st *SystemState) ComponentsReady() bool {
	return st.slots[KindDocumentStore].Status == StatusReady &&
		st.slots[KindKnowledgeIndex].Status == StatusReady
}

// Close releases resources held by the constructed subsystems.
func (st *SystemState) Close() error {
	if st.Store != nil {
		return st.Store.Close()
	}
	return nil
}

func (st *SystemState) ready(k Kind) {
	st.slots[k] = Slot{Kind: k, Status: StatusReady}
	slog.Info("subsystem ready", "subsystem", string(k))
}

func (st *SystemState) failed(k Kind, err error) {
	st.slots[k] = Slot{Kind: k, Status: StatusFailed, Reason: err.Error()}
	slog.Warn("subsystem failed", "subsystem", string(k), "reason", err.Error())
}

// Run constructs the subsystems in fixed order: document store, knowledge
// index, user store, AI client. It never returns an error; every failure
// is captured in the corresponding slot and the caller decides whether
// ComponentsReady is enough to serve.
func Run(ctx context.Context, cfg config.Config) *SystemState {
	st := &SystemState{slots: make(map[Kind]Slot, len(Kinds))}
	for _, k := range Kinds {
		st.slots[k] = Slot{Kind: k, Status: StatusUninitialized}
	}

	// 1. Document store: owns the on-disk document area.
	docs, err := docstore.New(filepath.Join(cfg.Storage.DataDir, "documents"))
	if err != nil {
		st.failed(KindDocumentStore, err)
	} else {
		st.Docs = docs
		st.ready(KindDocumentStore)
	}

	// 2. Knowledge index: opens the database it searches over.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		st.failed(KindKnowledgeIndex, err)
	} else {
		st.Store = store
		st.Knowledge = knowledge.NewIndex(store.DB(), cfg.Knowledge.MaxResults)
		st.ready(KindKnowledgeIndex)
	}

	// 3. User store: needs the database from the previous step. When the
	// database is down this records its own independent failure.
	users, err := userstore.New(userSource(st.Store))
	if err != nil {
		st.failed(KindUserStore, err)
	} else {
		st.Users = users
		st.ready(KindUserStore)
	}

	// 4. AI client: a missing credential is an ordinary failure, the
	// service keeps running on knowledge search alone.
	ai, err := assistant.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.RichModel, cfg.Gemini.FastModel, cfg.Gemini.FailureMarker)
	if err != nil {
		st.failed(KindAIClient, err)
	} else {
		st.Assistant = ai
		st.ready(KindAIClient)
	}

	return st
}

// userSource avoids handing userstore.New a non-nil interface wrapping a
// nil *storage.Store.
func userSource(s *storage.Store) userstore.UserSource {
	if s == nil {
		return nil
	}
	return s
}
