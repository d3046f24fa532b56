package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// Adapter loads and saves one owner's session list. Two layouts are
// supported: "multi" keeps the whole list under SessionListKey, "single"
// keeps only the active session id under SessionIDKey.
type Adapter struct {
	kv        KV
	namespace string
	schema    string
}

func NewAdapter(kv KV, namespace, schema string) *Adapter {
	if schema == "" {
		schema = config.StoreSchemaMulti
	}
	return &Adapter{kv: kv, namespace: namespace, schema: schema}
}

type persistedState struct {
	ActiveID string           `json:"activeId,omitempty"`
	Sessions []domain.Session `json:"sessions"`
}

// Load returns the persisted state, or nil when nothing usable is stored.
// Read failures and malformed data are logged and treated as absent.
func (a *Adapter) Load(ctx context.Context) *domain.SessionListState {
	key := a.key()
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		slog.Warn("load session state", "key", key, "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var state *domain.SessionListState
	if a.schema == config.StoreSchemaSingle {
		state = &domain.SessionListState{
			Sessions: []domain.Session{{ID: raw, Preview: domain.DefaultPreview}},
			ActiveID: raw,
		}
	} else {
		state = decodeList(raw)
		if state == nil {
			slog.Warn("discarding malformed session state", "key", key)
			return nil
		}
	}

	state.Normalize()
	if len(state.Sessions) == 0 {
		return nil
	}
	return state
}

// Save writes state. An empty state removes the stored value.
func (a *Adapter) Save(ctx context.Context, state domain.SessionListState) error {
	key := a.key()

	if a.schema == config.StoreSchemaSingle {
		active, ok := state.Active()
		if !ok {
			return a.kv.Remove(ctx, key)
		}
		return a.kv.Set(ctx, key, active.ID)
	}

	if len(state.Sessions) == 0 {
		return a.kv.Remove(ctx, key)
	}

	data, err := json.Marshal(persistedState{ActiveID: state.ActiveID, Sessions: state.Sessions})
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return a.kv.Set(ctx, key, string(data))
}

// Clear removes the owner's stored state.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.kv.Remove(ctx, a.key())
}

func (a *Adapter) key() string {
	if a.schema == config.StoreSchemaSingle {
		return Namespaced(a.namespace, config.SessionIDKey)
	}
	return Namespaced(a.namespace, config.SessionListKey)
}

// decodeList accepts the object layout and a bare session array, in which
// case the first entry becomes active.
func decodeList(raw string) *domain.SessionListState {
	var obj persistedState
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return &domain.SessionListState{Sessions: obj.Sessions, ActiveID: obj.ActiveID}
	}

	var list []domain.Session
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		state := &domain.SessionListState{Sessions: list}
		if len(list) > 0 {
			state.ActiveID = list[0].ID
		}
		return state
	}
	return nil
}
