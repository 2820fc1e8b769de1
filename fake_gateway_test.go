package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/korpela/gdrive-go/internal/api"
)

// fakeGateway is an in-memory Gateway with scripted listings and call
// counters, so tests can assert exactly how many remote calls an operation
// costs.
type fakeGateway struct {
	records map[string]api.Record
	pages   map[string][]api.Page
	content map[string]string
	perms   map[string][]api.PermissionRecord

	getCalls        int
	listCalls       int
	createCalls     int
	updateCalls     int
	deleteCalls     int
	copyCalls       int
	genCalls        int
	emptyTrashCalls int

	listQueries    []string
	lastPatch      api.Patch
	lastMove       *api.MoveOptions
	lastCreate     api.CreateRecord
	lastUploadSize int64

	nextGenID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records: make(map[string]api.Record),
		pages:   make(map[string][]api.Page),
		content: make(map[string]string),
		perms:   make(map[string][]api.PermissionRecord),
	}
}

// newTestClient wires a Client to a fresh fake gateway.
func newTestClient(t *testing.T) (*Client, *fakeGateway) {
	t.Helper()

	gw := newFakeGateway()

	return NewClient(gw, slog.Default()), gw
}

var testTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func folderRec(id, name, parent string) api.Record {
	return api.Record{
		ID:         id,
		Name:       name,
		MimeType:   MimeFolder,
		Parents:    []string{parent},
		CreatedAt:  testTime,
		ModifiedAt: testTime,
	}
}

func fileRec(id, name, parent string) api.Record {
	return api.Record{
		ID:         id,
		Name:       name,
		MimeType:   "text/plain",
		Parents:    []string{parent},
		CreatedAt:  testTime,
		ModifiedAt: testTime,
		Size:       42,
	}
}

func (g *fakeGateway) addRecord(rec api.Record) {
	g.records[rec.ID] = rec
}

// setPages scripts the paginated result for a query. Each group of records
// becomes one page; continuation tokens are synthesized.
func (g *fakeGateway) setPages(query string, pageGroups ...[]api.Record) {
	pages := make([]api.Page, len(pageGroups))

	for i, group := range pageGroups {
		pages[i] = api.Page{Records: group}
		if i < len(pageGroups)-1 {
			pages[i].NextPageToken = "page-" + strconv.Itoa(i+1)
		}
	}

	g.pages[query] = pages
}

func (g *fakeGateway) GetFile(_ context.Context, fileID string) (*api.Record, error) {
	g.getCalls++

	rec, ok := g.records[fileID]
	if !ok {
		return nil, fmt.Errorf("fake: no record %q: %w", fileID, api.ErrNotFound)
	}

	out := rec

	return &out, nil
}

func (g *fakeGateway) CreateFile(_ context.Context, meta api.CreateRecord) (*api.Record, error) {
	g.createCalls++
	g.lastCreate = meta

	id := meta.ID
	if id == "" {
		g.nextGenID++
		id = "created-" + strconv.Itoa(g.nextGenID)
	}

	rec := api.Record{
		ID:          id,
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		Description: meta.Description,
		Parents:     meta.Parents,
		CreatedAt:   testTime,
		ModifiedAt:  testTime,
	}

	if meta.ShortcutDetails != nil {
		rec.ShortcutTargetID = meta.ShortcutDetails.TargetID
	}

	g.records[id] = rec

	return &rec, nil
}

func (g *fakeGateway) UpdateFile(_ context.Context, fileID string, patch api.Patch, move *api.MoveOptions) (*api.Record, error) {
	g.updateCalls++
	g.lastPatch = patch
	g.lastMove = move

	rec, ok := g.records[fileID]
	if !ok {
		return nil, fmt.Errorf("fake: no record %q: %w", fileID, api.ErrNotFound)
	}

	if patch.Name != nil {
		rec.Name = *patch.Name
	}

	if patch.Description != nil {
		rec.Description = *patch.Description
	}

	if patch.Trashed != nil {
		rec.Trashed = *patch.Trashed
	}

	if patch.Starred != nil {
		rec.Starred = *patch.Starred
	}

	if len(patch.ContentRestrictions) > 0 {
		rec.Restricted = patch.ContentRestrictions[0].ReadOnly
		rec.RestrictionReason = patch.ContentRestrictions[0].Reason
	}

	if move != nil && move.AddParents != "" {
		rec.Parents = []string{move.AddParents}
	}

	g.records[fileID] = rec

	return &rec, nil
}

func (g *fakeGateway) DeleteFile(_ context.Context, fileID string) error {
	g.deleteCalls++
	delete(g.records, fileID)

	return nil
}

func (g *fakeGateway) CopyFile(_ context.Context, fileID string, meta api.CreateRecord) (*api.Record, error) {
	g.copyCalls++

	src, ok := g.records[fileID]
	if !ok {
		return nil, fmt.Errorf("fake: no record %q: %w", fileID, api.ErrNotFound)
	}

	rec := src
	rec.ID = meta.ID
	rec.Name = meta.Name
	rec.Parents = meta.Parents

	g.records[rec.ID] = rec

	return &rec, nil
}

func (g *fakeGateway) GenerateIDs(_ context.Context, count int) ([]string, error) {
	g.genCalls++

	ids := make([]string, count)
	for i := range ids {
		g.nextGenID++
		ids[i] = "gen-" + strconv.Itoa(g.nextGenID)
	}

	return ids, nil
}

func (g *fakeGateway) EmptyTrash(_ context.Context) error {
	g.emptyTrashCalls++

	return nil
}

func (g *fakeGateway) List(_ context.Context, q api.ListQuery, pageToken string) (*api.Page, error) {
	g.listCalls++
	g.listQueries = append(g.listQueries, q.Query)

	pages, ok := g.pages[q.Query]
	if !ok {
		return &api.Page{}, nil
	}

	idx := 0

	if pageToken != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(pageToken, "page-"))
		if err != nil {
			return nil, fmt.Errorf("fake: bad page token %q", pageToken)
		}

		idx = n
	}

	if idx >= len(pages) {
		return &api.Page{}, nil
	}

	page := pages[idx]

	return &page, nil
}

func (g *fakeGateway) Upload(_ context.Context, meta api.CreateRecord, content io.Reader, _ string, size int64) (*api.Record, error) {
	g.lastUploadSize = size

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	rec, err := g.CreateFile(context.Background(), meta)
	if err != nil {
		return nil, err
	}

	rec.Size = int64(len(data))
	g.records[rec.ID] = *rec
	g.content[rec.ID] = string(data)

	return rec, nil
}

func (g *fakeGateway) UpdateContent(_ context.Context, fileID string, content io.Reader, _ string) (*api.Record, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	rec, ok := g.records[fileID]
	if !ok {
		return nil, fmt.Errorf("fake: no record %q: %w", fileID, api.ErrNotFound)
	}

	rec.Size = int64(len(data))
	rec.ModifiedAt = testTime.Add(time.Hour)

	g.records[fileID] = rec
	g.content[fileID] = string(data)

	return &rec, nil
}

func (g *fakeGateway) Download(_ context.Context, fileID string, w io.Writer) (int64, error) {
	data, ok := g.content[fileID]
	if !ok {
		return 0, fmt.Errorf("fake: no content %q: %w", fileID, api.ErrNotFound)
	}

	n, err := io.WriteString(w, data)

	return int64(n), err
}

func (g *fakeGateway) Export(_ context.Context, fileID, mimeType string, w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "export:%s:%s", fileID, mimeType)

	return int64(n), err
}

func (g *fakeGateway) CreatePermission(_ context.Context, fileID string, perm api.PermissionRecord) (*api.PermissionRecord, error) {
	perm.ID = "perm-" + strconv.Itoa(len(g.perms[fileID])+1)
	g.perms[fileID] = append(g.perms[fileID], perm)

	return &perm, nil
}

func (g *fakeGateway) UpdatePermission(_ context.Context, fileID, permissionID string, patch api.PermissionPatch) (*api.PermissionRecord, error) {
	for i, p := range g.perms[fileID] {
		if p.ID != permissionID {
			continue
		}

		if patch.Role != "" {
			p.Role = patch.Role
		}

		if patch.RemoveExpiration {
			p.ExpirationTime = ""
		} else if patch.ExpirationTime != "" {
			p.ExpirationTime = patch.ExpirationTime
		}

		g.perms[fileID][i] = p

		return &p, nil
	}

	return nil, fmt.Errorf("fake: no permission %q: %w", permissionID, api.ErrNotFound)
}

func (g *fakeGateway) DeletePermission(_ context.Context, fileID, permissionID string) error {
	perms := g.perms[fileID]
	for i, p := range perms {
		if p.ID == permissionID {
			g.perms[fileID] = append(perms[:i], perms[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("fake: no permission %q: %w", permissionID, api.ErrNotFound)
}

func (g *fakeGateway) ListPermissions(_ context.Context, fileID string) ([]api.PermissionRecord, error) {
	return g.perms[fileID], nil
}
