package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePermission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files/file-1/permissions", r.URL.Path)

		var perm PermissionRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&perm))
		assert.Equal(t, "user", perm.Type)
		assert.Equal(t, "writer", perm.Role)
		assert.Equal(t, "alice@example.com", perm.EmailAddress)

		_, _ = w.Write([]byte(`{"id":"perm-1","type":"user","role":"writer",
			"emailAddress":"alice@example.com","displayName":"Alice"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rec, err := client.CreatePermission(context.Background(), "file-1", PermissionRecord{
		Type:         "user",
		Role:         "writer",
		EmailAddress: "alice@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "perm-1", rec.ID)
	assert.Equal(t, "Alice", rec.DisplayName)
}

func TestUpdatePermission_RemoveExpiration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/files/file-1/permissions/perm-1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("removeExpiration"))

		var patch PermissionPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.Equal(t, "reader", patch.Role)

		_, _ = w.Write([]byte(`{"id":"perm-1","type":"user","role":"reader"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rec, err := client.UpdatePermission(context.Background(), "file-1", "perm-1",
		PermissionPatch{Role: "reader", RemoveExpiration: true})
	require.NoError(t, err)
	assert.Equal(t, "reader", rec.Role)
}

func TestDeletePermission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/files/file-1/permissions/perm-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.DeletePermission(context.Background(), "file-1", "perm-1"))
}

func TestListPermissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file-1/permissions", r.URL.Path)

		_, _ = w.Write([]byte(`{"permissions":[
			{"id":"perm-1","type":"user","role":"owner","emailAddress":"me@example.com"},
			{"id":"perm-2","type":"anyone","role":"reader","expirationTime":"2026-12-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	perms, err := client.ListPermissions(context.Background(), "file-1")
	require.NoError(t, err)

	require.Len(t, perms, 2)
	assert.Equal(t, "owner", perms[0].Role)
	assert.Equal(t, "anyone", perms[1].Type)
	assert.Equal(t, "2026-12-01T00:00:00Z", perms[1].ExpirationTime)
}
