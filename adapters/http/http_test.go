package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/schema"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestFetchCatalog(t *testing.T) {
	var paths []string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/content-type-builder/content-types":
			_, _ = w.Write([]byte(`{"data":[{"uid":"application::article.article","schema":{"name":"Article","attributes":{}}}]}`))
		case "/content-type-builder/components":
			_, _ = w.Write([]byte(`{"data":[{"uid":"default.dish","category":"default","schema":{"name":"Dish"}}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	source, err := NewSource(&Config{
		BaseURL:    server.URL,
		AuthMethod: "bearer",
		AuthConfig: map[string]string{"token": "secret"},
	}, server.Client())
	require.NoError(t, err)

	contentTypes, err := source.FetchCatalog(context.Background(), schema.KindContentType)
	require.NoError(t, err)
	require.Len(t, contentTypes, 1)
	assert.Equal(t, "Article", contentTypes[0].Schema.Name)

	components, err := source.FetchCatalog(context.Background(), schema.KindComponent)
	require.NoError(t, err)
	assert.Equal(t, "default", components[0].Category)

	assert.Equal(t, []string{"/content-type-builder/content-types", "/content-type-builder/components"}, paths)
}

func TestFetchCatalogAPIKey(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	source, err := NewSource(&Config{
		BaseURL:    server.URL,
		AuthMethod: "api_key",
		AuthConfig: map[string]string{"key": "k", "header": "X-Token"},
	}, server.Client())
	require.NoError(t, err)

	records, err := source.FetchCatalog(context.Background(), schema.KindContentType)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchCatalogStatusError(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	source, err := NewSource(&Config{BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	_, err = source.FetchCatalog(context.Background(), schema.KindComponent)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "forbidden", statusErr.Body)
}

func TestFetchCatalogInvalidPayload(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	source, err := NewSource(&Config{BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	_, err = source.FetchCatalog(context.Background(), schema.KindComponent)

	assert.ErrorIs(t, err, adapters.ErrInvalidPayload)
}

func TestFetchCatalogPayloadTooLarge(t *testing.T) {
	body := `{"data":[{"uid":"default.dish","category":"default","schema":{"name":"Dish"}}]}`
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	source, err := NewSource(&Config{BaseURL: server.URL, MaxPayload: int64(len(body) - 1)}, server.Client())
	require.NoError(t, err)
	_, err = source.FetchCatalog(context.Background(), schema.KindComponent)

	var tooLarge *PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(len(body)-1), tooLarge.Limit)
	assert.NotErrorIs(t, err, adapters.ErrInvalidPayload)
	assert.Contains(t, err.Error(), "max_payload_bytes")

	source, err = NewSource(&Config{BaseURL: server.URL, MaxPayload: int64(len(body))}, server.Client())
	require.NoError(t, err)
	records, err := source.FetchCatalog(context.Background(), schema.KindComponent)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchCatalogCancelled(t *testing.T) {
	release := make(chan struct{})
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	source, err := NewSource(&Config{BaseURL: server.URL}, server.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = source.FetchCatalog(ctx, schema.KindContentType)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateConfig(t *testing.T) {
	factory := &Factory{}
	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr bool
	}{
		{name: "minimal", config: map[string]interface{}{"base_url": "http://localhost:1337"}},
		{name: "missing url", config: map[string]interface{}{}, wantErr: true},
		{name: "bad scheme", config: map[string]interface{}{"base_url": "ftp://host"}, wantErr: true},
		{name: "bearer without token", config: map[string]interface{}{"base_url": "http://h", "auth_method": "bearer"}, wantErr: true},
		{name: "unknown auth", config: map[string]interface{}{"base_url": "http://h", "auth_method": "oauth"}, wantErr: true},
		{name: "bad timeout", config: map[string]interface{}{"base_url": "http://h", "timeout": "soon"}, wantErr: true},
		{name: "timeout", config: map[string]interface{}{"base_url": "http://h", "timeout": "2s"}},
		{name: "negative payload limit", config: map[string]interface{}{"base_url": "http://h", "max_payload_bytes": -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := factory.ValidateConfig(adapters.SourceConfig{Type: "http", Config: tt.config})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEndpoint(t *testing.T) {
	source, err := NewSource(&Config{BaseURL: "http://localhost:1337/", PluginID: "/builder/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1337/builder/components", source.Endpoint(schema.KindComponent))
}
