package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

type fakeHashes struct {
	hashes map[string]map[string]string
	err    error
}

func newFakeHashes() *fakeHashes {
	return &fakeHashes{hashes: make(map[string]map[string]string)}
}

func (f *fakeHashes) HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd {
	if f.err != nil {
		return redis.NewStringStringMapResult(nil, f.err)
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewStringStringMapResult(out, nil)
}

func (f *fakeHashes) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for i := 0; i+1 < len(values); i += 2 {
		field := values[i].(string)
		switch v := values[i+1].(type) {
		case []byte:
			f.hashes[key][field] = string(v)
		case string:
			f.hashes[key][field] = v
		}
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHashes) Close() error { return nil }

func TestPutThenFetch(t *testing.T) {
	client := newFakeHashes()
	source := newSource(client, "")
	ctx := context.Background()

	require.NoError(t, source.Put(ctx, schema.KindContentType, schema.Record{UID: "b", Schema: schema.Schema{Name: "B"}}))
	require.NoError(t, source.Put(ctx, schema.KindContentType, schema.Record{UID: "a", Schema: schema.Schema{Name: "A"}}))
	require.NoError(t, source.Put(ctx, schema.KindComponent, schema.Record{UID: "c.c", Category: "c"}))

	records, err := source.FetchCatalog(ctx, schema.KindContentType)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].UID)
	assert.Equal(t, "B", records[1].Schema.Name)

	assert.Contains(t, client.hashes, "schemadraft:content-types")
	assert.Contains(t, client.hashes, "schemadraft:components")
}

func TestHashFieldIsAuthoritativeUID(t *testing.T) {
	data, err := json.Marshal(schema.Record{UID: "stale", Schema: schema.Schema{Name: "A"}})
	require.NoError(t, err)

	records, err := decodeEntries(map[string]string{"fresh": string(data)})
	require.NoError(t, err)

	assert.Equal(t, "fresh", records[0].UID)
}

func TestFetchErrors(t *testing.T) {
	client := newFakeHashes()
	source := newSource(client, "cms:")

	client.hashes["cms:components"] = map[string]string{"x": "{"}
	_, err := source.FetchCatalog(context.Background(), schema.KindComponent)
	assert.Error(t, err)

	client.err = errors.New("connection reset")
	_, err = source.FetchCatalog(context.Background(), schema.KindContentType)
	assert.ErrorIs(t, err, client.err)

	_, err = source.FetchCatalog(context.Background(), "page")
	assert.ErrorIs(t, err, schema.ErrUnknownKind)
}

func TestValidateConfig(t *testing.T) {
	factory := &Factory{}

	assert.NoError(t, factory.ValidateConfig(adapters.SourceConfig{Config: map[string]interface{}{"addr": "localhost:6379"}}))
	assert.Error(t, factory.ValidateConfig(adapters.SourceConfig{Config: map[string]interface{}{}}))
	assert.Error(t, factory.ValidateConfig(adapters.SourceConfig{Config: map[string]interface{}{"addr": "localhost:6379", "db": -1}}))
}
