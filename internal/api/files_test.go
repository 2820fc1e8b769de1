package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFileJSON = `{
	"id": "file-1",
	"name": "report.pdf",
	"mimeType": "application/pdf",
	"description": "quarterly numbers",
	"parents": ["folder-1"],
	"starred": true,
	"createdTime": "2024-03-01T10:00:00Z",
	"modifiedTime": "2024-03-02T11:30:00Z",
	"size": "2048",
	"webViewLink": "https://drive.example/view/file-1"
}`

func TestToRecord_Normalization(t *testing.T) {
	var fr fileResource
	require.NoError(t, json.Unmarshal([]byte(sampleFileJSON), &fr))

	rec := fr.toRecord(slog.Default())

	assert.Equal(t, "file-1", rec.ID)
	assert.Equal(t, "report.pdf", rec.Name)
	assert.Equal(t, "application/pdf", rec.MimeType)
	assert.Equal(t, "quarterly numbers", rec.Description)
	assert.Equal(t, []string{"folder-1"}, rec.Parents)
	assert.True(t, rec.Starred)
	assert.False(t, rec.Trashed)
	assert.Equal(t, int64(2048), rec.Size)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), rec.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC), rec.ModifiedAt)
	assert.False(t, rec.Restricted)
	assert.Empty(t, rec.ShortcutTargetID)
}

func TestToRecord_MissingSize(t *testing.T) {
	fr := fileResource{
		ID:           "folder-1",
		Name:         "Docs",
		MimeType:     "application/vnd.google-apps.folder",
		CreatedTime:  "2024-01-01T00:00:00Z",
		ModifiedTime: "2024-01-01T00:00:00Z",
	}

	rec := fr.toRecord(slog.Default())
	assert.Zero(t, rec.Size)
}

func TestToRecord_InvalidSize(t *testing.T) {
	fr := fileResource{
		ID:           "file-1",
		Size:         "not-a-number",
		CreatedTime:  "2024-01-01T00:00:00Z",
		ModifiedTime: "2024-01-01T00:00:00Z",
	}

	rec := fr.toRecord(slog.Default())
	assert.Zero(t, rec.Size)
}

func TestToRecord_ContentRestrictions(t *testing.T) {
	fr := fileResource{
		ID:           "file-1",
		CreatedTime:  "2024-01-01T00:00:00Z",
		ModifiedTime: "2024-01-01T00:00:00Z",
		ContentRestrictions: []contentRestriction{
			{ReadOnly: false, Reason: "ignored"},
			{ReadOnly: true, Reason: "frozen for audit"},
		},
	}

	rec := fr.toRecord(slog.Default())
	assert.True(t, rec.Restricted)
	assert.Equal(t, "frozen for audit", rec.RestrictionReason)
}

func TestToRecord_Shortcut(t *testing.T) {
	fr := fileResource{
		ID:              "short-1",
		MimeType:        "application/vnd.google-apps.shortcut",
		CreatedTime:     "2024-01-01T00:00:00Z",
		ModifiedTime:    "2024-01-01T00:00:00Z",
		ShortcutDetails: &shortcutDetails{TargetID: "target-9"},
	}

	rec := fr.toRecord(slog.Default())
	assert.Equal(t, "target-9", rec.ShortcutTargetID)
}

func TestParseTimestamp_Invalid(t *testing.T) {
	before := time.Now().UTC()
	got := parseTimestamp("garbage", "modifiedTime", "x", slog.Default())
	assert.False(t, got.Before(before.Add(-time.Second)))
}

func TestParseTimestamp_OutOfRange(t *testing.T) {
	before := time.Now().UTC()
	got := parseTimestamp("1492-01-01T00:00:00Z", "createdTime", "x", slog.Default())
	assert.False(t, got.Before(before.Add(-time.Second)))
}

func TestGetFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file-1", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "contentRestrictions")

		_, _ = w.Write([]byte(sampleFileJSON))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rec, err := client.GetFile(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, "file-1", rec.ID)
	assert.Equal(t, "report.pdf", rec.Name)
}

func TestCreateFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files", r.URL.Path)

		var meta CreateRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "New Folder", meta.Name)
		assert.Equal(t, "application/vnd.google-apps.folder", meta.MimeType)
		assert.Equal(t, []string{"parent-1"}, meta.Parents)

		_, _ = w.Write([]byte(`{"id":"new-1","name":"New Folder",
			"mimeType":"application/vnd.google-apps.folder",
			"createdTime":"2024-01-01T00:00:00Z","modifiedTime":"2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rec, err := client.CreateFile(context.Background(), CreateRecord{
		Name:     "New Folder",
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{"parent-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", rec.ID)
}

func TestUpdateFile_PatchBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		// Only the name field is set; nil pointers stay out of the JSON.
		assert.JSONEq(t, `{"name":"renamed"}`, string(body))

		_, _ = w.Write([]byte(sampleFileJSON))
	}))
	defer srv.Close()

	name := "renamed"

	client := newTestClient(t, srv.URL)
	_, err := client.UpdateFile(context.Background(), "file-1", Patch{Name: &name}, nil)
	require.NoError(t, err)
}

func TestUpdateFile_MoveParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "new-parent", r.URL.Query().Get("addParents"))
		assert.Equal(t, "old-parent", r.URL.Query().Get("removeParents"))

		_, _ = w.Write([]byte(sampleFileJSON))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.UpdateFile(context.Background(), "file-1", Patch{},
		&MoveOptions{AddParents: "new-parent", RemoveParents: "old-parent"})
	require.NoError(t, err)
}

func TestDeleteFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/files/file-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.DeleteFile(context.Background(), "file-1"))
}

func TestCopyFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file-1/copy", r.URL.Path)

		var meta CreateRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "pre-alloc-1", meta.ID)

		_, _ = w.Write([]byte(`{"id":"pre-alloc-1","name":"copy",
			"createdTime":"2024-01-01T00:00:00Z","modifiedTime":"2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rec, err := client.CopyFile(context.Background(), "file-1", CreateRecord{ID: "pre-alloc-1", Name: "copy"})
	require.NoError(t, err)
	assert.Equal(t, "pre-alloc-1", rec.ID)
}

func TestGenerateIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/generateIds", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("count"))

		_, _ = w.Write([]byte(`{"ids":["a","b","c"]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ids, err := client.GenerateIDs(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestEmptyTrash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/files/trash", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.EmptyTrash(context.Background()))
}

func TestList_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "'folder-1' in parents and trashed = false", q.Get("q"))
		assert.Equal(t, "50", q.Get("pageSize"))
		assert.Equal(t, "folder,name", q.Get("orderBy"))
		assert.Equal(t, "token-1", q.Get("pageToken"))
		assert.Contains(t, q.Get("fields"), "nextPageToken")

		_, _ = w.Write([]byte(`{"files":[` + sampleFileJSON + `],"nextPageToken":"token-2"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	page, err := client.List(context.Background(), ListQuery{
		Query:    "'folder-1' in parents and trashed = false",
		OrderBy:  "folder,name",
		PageSize: 50,
	}, "token-1")
	require.NoError(t, err)

	require.Len(t, page.Records, 1)
	assert.Equal(t, "file-1", page.Records[0].ID)
	assert.Equal(t, "token-2", page.NextPageToken)
}

func TestList_LastPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("pageToken"))
		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	page, err := client.List(context.Background(), ListQuery{Query: "starred = true"}, "")
	require.NoError(t, err)

	assert.Empty(t, page.Records)
	assert.Empty(t, page.NextPageToken)
}

func TestList_SharedDriveParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "drive-9", q.Get("driveId"))
		assert.Equal(t, "true", q.Get("includeItemsFromAllDrives"))
		assert.Equal(t, "true", q.Get("supportsAllDrives"))

		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.List(context.Background(), ListQuery{Query: "x", DriveID: "drive-9"}, "")
	require.NoError(t, err)
}
