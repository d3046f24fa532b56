package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

func TestAdapterMultiRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewAdapter(kv, "tg:1", config.StoreSchemaMulti)

	assert.Nil(t, a.Load(ctx))

	state := domain.SessionListState{
		Sessions: []domain.Session{{ID: "b", Preview: "second"}, {ID: "a", Preview: "New Chat"}},
		ActiveID: "a",
	}
	require.NoError(t, a.Save(ctx, state))

	raw, ok, err := kv.Get(ctx, "tg:1/chatSessions")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"activeId":"a","sessions":[{"id":"b","preview":"second"},{"id":"a","preview":"New Chat"}]}`, raw)

	loaded := a.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, state, *loaded)
}

func TestAdapterKeepsTitledFlag(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewAdapter(kv, "tg:1", config.StoreSchemaMulti)

	state := domain.SessionListState{
		Sessions: []domain.Session{{ID: "a", Preview: domain.DefaultPreview, Titled: true}},
		ActiveID: "a",
	}
	require.NoError(t, a.Save(ctx, state))

	raw, _, err := kv.Get(ctx, "tg:1/chatSessions")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeId":"a","sessions":[{"id":"a","preview":"New Chat","titled":true}]}`, raw)

	loaded := a.Load(ctx)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Sessions[0].HasDefaultPreview())
}

func TestAdapterNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	one := NewAdapter(kv, "tg:1", "")
	two := NewAdapter(kv, "tg:2", "")

	require.NoError(t, one.Save(ctx, domain.SessionListState{
		Sessions: []domain.Session{{ID: "x", Preview: "hi"}}, ActiveID: "x",
	}))
	assert.NotNil(t, one.Load(ctx))
	assert.Nil(t, two.Load(ctx))
}

func TestAdapterLoadBareArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "chatSessions", `[{"id":"s2","preview":"Hello"},{"id":"s1","preview":""}]`))

	loaded := NewAdapter(kv, "", config.StoreSchemaMulti).Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, "s2", loaded.ActiveID)
	assert.Equal(t, domain.DefaultPreview, loaded.Sessions[1].Preview)
}

func TestAdapterLoadRepairsDanglingActive(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "chatSessions", `{"activeId":"gone","sessions":[{"id":"s1","preview":"p"}]}`))

	loaded := NewAdapter(kv, "", "").Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, "s1", loaded.ActiveID)
}

func TestAdapterLoadMalformed(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"garbage":     "not json",
		"string":      `"abc"`,
		"null":        "null",
		"empty list":  "[]",
		"empty ids":   `[{"id":"","preview":"x"}]`,
		"wrong types": `{"sessions":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(ctx, "chatSessions", raw))
			assert.Nil(t, NewAdapter(kv, "", "").Load(ctx))
		})
	}
}

type failingKV struct{ MemoryKV }

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	return errors.New("disk on fire")
}

func TestAdapterStorageErrors(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(&failingKV{}, "", "")

	assert.Nil(t, a.Load(ctx))
	err := a.Save(ctx, domain.SessionListState{
		Sessions: []domain.Session{{ID: "s", Preview: "p"}}, ActiveID: "s",
	})
	assert.Error(t, err)
}

func TestAdapterSaveEmptyRemoves(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewAdapter(kv, "", "")

	require.NoError(t, a.Save(ctx, domain.SessionListState{
		Sessions: []domain.Session{{ID: "s", Preview: "p"}}, ActiveID: "s",
	}))
	require.NoError(t, a.Save(ctx, domain.SessionListState{}))

	_, ok, err := kv.Get(ctx, "chatSessions")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapterSingleSchema(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewAdapter(kv, "cli:default", config.StoreSchemaSingle)

	require.NoError(t, a.Save(ctx, domain.SessionListState{
		Sessions: []domain.Session{{ID: "s2", Preview: "Later"}, {ID: "s1", Preview: "Earlier"}},
		ActiveID: "s1",
	}))

	raw, ok, err := kv.Get(ctx, "cli:default/sessionId")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s1", raw)

	loaded := a.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.SessionListState{
		Sessions: []domain.Session{{ID: "s1", Preview: domain.DefaultPreview}},
		ActiveID: "s1",
	}, *loaded)

	require.NoError(t, a.Clear(ctx))
	assert.Nil(t, a.Load(ctx))
}
