package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/effectus/schemadraft/schema"
)

func startStore(t *testing.T) (*Store, context.CancelFunc, <-chan error) {
	t.Helper()
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()
	t.Cleanup(cancel)
	return store, cancel, done
}

func TestStoreStartsWithInitialState(t *testing.T) {
	store := NewStore(nil)

	assert.Equal(t, InitialState(), store.Snapshot())
}

func TestStoreDispatchAppliesInOrder(t *testing.T) {
	store, _, _ := startStore(t)
	ctx := context.Background()

	require.NoError(t, store.Dispatch(ctx, DataLoaded{Components: schema.Catalog{}, ContentTypes: schema.Catalog{}}))
	require.NoError(t, store.Dispatch(ctx, SeedDraft{Record: schema.Record{UID: "a"}}))
	require.NoError(t, store.Dispatch(ctx, AddAttribute{Attribute: schema.AttributeDefinition{Name: "x", Attribute: schema.Attribute{"type": "string"}}}))
	require.NoError(t, store.Dispatch(ctx, AddAttribute{Attribute: schema.AttributeDefinition{Name: "x", Attribute: schema.Attribute{"type": "text"}}}))

	state := store.Snapshot()
	assert.False(t, state.IsLoading)
	assert.Equal(t, "text", state.ModifiedData.Schema.Attributes["x"].Type())
	assert.Empty(t, state.InitialData.Schema.Attributes)
}

func TestStoreDispatchReturnsRejection(t *testing.T) {
	store, _, _ := startStore(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch(ctx, DataLoaded{
		Components:   schema.Catalog{},
		ContentTypes: schema.Normalize([]schema.Record{{UID: "a"}}),
	}))
	before := store.Snapshot()

	err := store.Dispatch(ctx, CreateSchema{Kind: schema.KindContentType, UID: "a"})

	assert.ErrorIs(t, err, ErrDuplicateUID)
	assert.Equal(t, before, store.Snapshot())
}

func TestStoreConcurrentAddAttribute(t *testing.T) {
	store, _, _ := startStore(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch(ctx, SeedDraft{Record: schema.Record{UID: "a"}}))

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, store.Dispatch(ctx, AddAttribute{Attribute: schema.AttributeDefinition{Name: name}}))
		}(name)
	}
	wg.Wait()

	attrs := store.Snapshot().ModifiedData.Schema.Attributes
	assert.Len(t, attrs, len(names))
	for _, name := range names {
		assert.Contains(t, attrs, name)
	}
}

func TestStoreDiscardsCancelledCommand(t *testing.T) {
	store, _, _ := startStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Dispatch(ctx, SeedDraft{Record: schema.Record{UID: "late"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, store.Snapshot().ModifiedData.IsZero())
}

func TestStoreDeriveSeesPriorCommands(t *testing.T) {
	store, _, _ := startStore(t)
	ctx := context.Background()
	require.NoError(t, store.Dispatch(ctx, DataLoaded{
		Components:   schema.Catalog{},
		ContentTypes: schema.Normalize([]schema.Record{{UID: "a", Schema: schema.Schema{Name: "A"}}}),
	}))

	var seen State
	err := store.Derive(ctx, func(s State) Command {
		seen = s
		record, ok := s.ContentTypes.Get("a")
		if !ok {
			return nil
		}
		return SeedDraft{Record: record}
	})
	require.NoError(t, err)

	assert.False(t, seen.IsLoading)
	assert.Equal(t, "A", store.Snapshot().ModifiedData.Schema.Name)
}

func TestStoreDeriveNilCommandIsNoop(t *testing.T) {
	store, _, _ := startStore(t)
	before := store.Snapshot()

	require.NoError(t, store.Derive(context.Background(), func(State) Command { return nil }))

	assert.Equal(t, before, store.Snapshot())
}

func TestStoreClosed(t *testing.T) {
	store, cancel, done := startStore(t)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("store did not stop")
	}

	err := store.Dispatch(context.Background(), SeedDraft{Record: schema.Record{UID: "a"}})
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStoreRunTwice(t *testing.T) {
	store, _, _ := startStore(t)

	require.Eventually(t, func() bool { return store.running.Load() }, time.Second, time.Millisecond)
	assert.Error(t, store.Run(context.Background()))
}

func TestStoreNilCommand(t *testing.T) {
	store := NewStore(nil)

	assert.NoError(t, store.Dispatch(context.Background(), nil))
	assert.NoError(t, store.Derive(context.Background(), nil))
}

func TestStoreLogsCommandNames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewStore(zap.New(core).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Run(ctx) }()

	require.NoError(t, store.Dispatch(ctx, SeedDraft{Record: schema.Record{UID: "a"}}))
	require.Error(t, store.Dispatch(ctx, &AddAttribute{}))
	var seed *SeedDraft
	require.NoError(t, store.Dispatch(ctx, seed))

	applied := logs.FilterMessage("command applied").All()
	require.Len(t, applied, 2)
	assert.Equal(t, "seed_draft", applied[0].ContextMap()["command"])
	assert.Equal(t, "nil", applied[1].ContextMap()["command"])

	rejected := logs.FilterMessage("command rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "add_attribute", rejected[0].ContextMap()["command"])
}
