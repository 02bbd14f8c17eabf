package publisher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaRegistersMissingSubject(t *testing.T) {
	var registered map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/snapshots-value/versions/latest":
			http.Error(w, `{"error_code":40401}`, http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/snapshots-value/versions":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &registered))
			_, _ = w.Write([]byte(`{"id":12}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "snapshots-value", weeklySnapshotSchema)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	require.Equal(t, "JSON", registered["schemaType"])
	require.Equal(t, weeklySnapshotSchema, registered["schema"])
}

func TestEnsureSchemaReusesLatestVersion(t *testing.T) {
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
		}
		_, _ = w.Write([]byte(`{"subject":"snapshots-value","version":3,"id":5}`))
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "snapshots-value", weeklySnapshotSchema)
	require.NoError(t, err)
	require.Equal(t, 5, id)
	require.Zero(t, posts)
}

func TestEnsureSchemaSurfacesRegistryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "incompatible schema", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "snapshots-value", weeklySnapshotSchema)
	require.ErrorContains(t, err, "incompatible schema")
}
