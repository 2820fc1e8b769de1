package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultPageSize is the pageSize value for List requests.
// 100 is the Drive API default; 1000 is the maximum.
const defaultPageSize = 100

// fileFields is the fields selector requested on every metadata call.
// Keeping one selector everywhere means every Record is uniformly populated.
const fileFields = "id,name,mimeType,description,parents,trashed,starred," +
	"createdTime,modifiedTime,size,webViewLink,contentRestrictions,shortcutDetails"

// Timestamp validation bounds — timestamps outside this range are replaced
// with the current time and a warning is logged.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// fileResource mirrors the Drive API file JSON exactly.
// Unexported — callers use Record via toRecord() normalization.
type fileResource struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	MimeType            string               `json:"mimeType"`
	Description         string               `json:"description"`
	Parents             []string             `json:"parents"`
	Trashed             bool                 `json:"trashed"`
	Starred             bool                 `json:"starred"`
	CreatedTime         string               `json:"createdTime"`
	ModifiedTime        string               `json:"modifiedTime"`
	Size                string               `json:"size"` // Drive returns int64 as a JSON string
	WebViewLink         string               `json:"webViewLink"`
	ContentRestrictions []contentRestriction `json:"contentRestrictions"`
	ShortcutDetails     *shortcutDetails     `json:"shortcutDetails"`
}

type contentRestriction struct {
	ReadOnly bool   `json:"readOnly"`
	Reason   string `json:"reason,omitempty"`
}

type shortcutDetails struct {
	TargetID string `json:"targetId"`
}

type listResponse struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

type generateIDsResponse struct {
	IDs []string `json:"ids"`
}

// Record represents a Drive file or folder metadata record.
// Fields are normalized from the API response — callers never see raw API data.
type Record struct {
	ID                string
	Name              string
	MimeType          string
	Description       string
	Parents           []string
	Trashed           bool
	Starred           bool
	Restricted        bool   // first contentRestriction with readOnly=true
	RestrictionReason string // empty when not restricted
	CreatedAt         time.Time
	ModifiedAt        time.Time
	Size              int64
	WebViewLink       string
	ShortcutTargetID  string // empty unless the record is a shortcut
}

// CreateRecord is the writable subset of metadata accepted by CreateFile,
// CopyFile, and Upload.
type CreateRecord struct {
	ID              string          `json:"id,omitempty"` // pre-allocated via GenerateIDs
	Name            string          `json:"name,omitempty"`
	MimeType        string          `json:"mimeType,omitempty"`
	Description     string          `json:"description,omitempty"`
	Parents         []string        `json:"parents,omitempty"`
	ShortcutDetails *ShortcutTarget `json:"shortcutDetails,omitempty"`
}

// ShortcutTarget names the file a shortcut points at.
type ShortcutTarget struct {
	TargetID string `json:"targetId"`
}

// Patch is the closed set of fields UpdateFile can change. Pointer fields
// distinguish "leave unchanged" (nil) from "set to zero value".
type Patch struct {
	Name                *string              `json:"name,omitempty"`
	Description         *string              `json:"description,omitempty"`
	Trashed             *bool                `json:"trashed,omitempty"`
	Starred             *bool                `json:"starred,omitempty"`
	ContentRestrictions []ContentRestriction `json:"contentRestrictions,omitempty"`
}

// ContentRestriction is the writable lock flag on a file.
type ContentRestriction struct {
	ReadOnly bool   `json:"readOnly"`
	Reason   string `json:"reason,omitempty"`
}

// MoveOptions reparent a file during UpdateFile. Drive moves are expressed
// as query parameters, not body fields.
type MoveOptions struct {
	AddParents    string
	RemoveParents string
}

// ListQuery describes one listing or search request.
type ListQuery struct {
	Query    string // Drive search expression, e.g. "'id' in parents"
	OrderBy  string // e.g. "folder,name" — empty means server default
	PageSize int    // 0 means defaultPageSize
	Spaces   string // empty means "drive"
	Corpora  string // empty means server default ("user")
	DriveID  string // shared drive scope, usually empty
}

// Page is one page of a listing result.
type Page struct {
	Records       []Record
	NextPageToken string // empty means the listing is exhausted
}

// toRecord normalizes a Drive API file resource into our Record type.
func (f *fileResource) toRecord(logger *slog.Logger) Record {
	rec := Record{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Description: f.Description,
		Parents:     f.Parents,
		Trashed:     f.Trashed,
		Starred:     f.Starred,
		WebViewLink: f.WebViewLink,
	}

	// Size arrives as a JSON string; folders and native documents omit it.
	if f.Size != "" {
		size, err := strconv.ParseInt(f.Size, 10, 64)
		if err != nil {
			logger.Warn("invalid size field, using zero",
				slog.String("item_id", f.ID),
				slog.String("raw", f.Size),
			)
		} else {
			rec.Size = size
		}
	}

	// The API reports a list of restrictions; only the first readOnly one
	// matters for the lock flag.
	for _, cr := range f.ContentRestrictions {
		if cr.ReadOnly {
			rec.Restricted = true
			rec.RestrictionReason = cr.Reason

			break
		}
	}

	if f.ShortcutDetails != nil {
		rec.ShortcutTargetID = f.ShortcutDetails.TargetID
	}

	// Timestamps — validate and fallback to now if invalid
	rec.CreatedAt = parseTimestamp(f.CreatedTime, "createdTime", f.ID, logger)
	rec.ModifiedAt = parseTimestamp(f.ModifiedTime, "modifiedTime", f.ID, logger)

	return rec
}

// parseTimestamp parses an RFC3339 timestamp and validates the year range.
// Invalid or out-of-range timestamps are replaced with time.Now().UTC() and logged.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		logger.Warn("empty timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
		)

		return time.Now().UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Now().UTC()
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Now().UTC()
	}

	return t
}

// fetchRecord executes a metadata request and decodes the file resource
// response. Shared by every call that returns a single record.
func (c *Client) fetchRecord(ctx context.Context, method, apiPath string, body io.Reader) (*Record, error) {
	resp, err := c.Do(ctx, method, apiPath, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResource
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("api: decoding file response: %w", err)
	}

	rec := fr.toRecord(c.logger)

	return &rec, nil
}

// GetFile retrieves a single file's metadata by ID.
func (c *Client) GetFile(ctx context.Context, fileID string) (*Record, error) {
	c.logger.Info("getting file",
		slog.String("file_id", fileID),
	)

	path := fmt.Sprintf("/files/%s?fields=%s", url.PathEscape(fileID), url.QueryEscape(fileFields))

	return c.fetchRecord(ctx, http.MethodGet, path, nil)
}

// CreateFile creates a metadata-only file (folders, shortcuts, empty files).
// For files with content, use Upload.
func (c *Client) CreateFile(ctx context.Context, meta CreateRecord) (*Record, error) {
	c.logger.Info("creating file",
		slog.String("name", meta.Name),
		slog.String("mime_type", meta.MimeType),
	)

	bodyBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling create request: %w", err)
	}

	path := "/files?fields=" + url.QueryEscape(fileFields)

	return c.fetchRecord(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
}

// UpdateFile patches file metadata and/or reparents the file.
// Either patch fields or move options (or both) may be set; a call with
// neither is a caller bug and fails server-side with 400.
func (c *Client) UpdateFile(ctx context.Context, fileID string, patch Patch, move *MoveOptions) (*Record, error) {
	c.logger.Info("updating file",
		slog.String("file_id", fileID),
	)

	query := url.Values{}
	query.Set("fields", fileFields)

	if move != nil {
		if move.AddParents != "" {
			query.Set("addParents", move.AddParents)
		}

		if move.RemoveParents != "" {
			query.Set("removeParents", move.RemoveParents)
		}
	}

	bodyBytes, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling update request: %w", err)
	}

	path := fmt.Sprintf("/files/%s?%s", url.PathEscape(fileID), query.Encode())

	return c.fetchRecord(ctx, http.MethodPatch, path, bytes.NewReader(bodyBytes))
}

// DeleteFile permanently deletes a file, bypassing the trash.
// Returns nil on success (HTTP 204).
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Info("deleting file",
		slog.String("file_id", fileID),
	)

	resp, err := c.Do(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}

	// 204 No Content — drain and close to reuse connection.
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("api: draining delete response body: %w", copyErr)
	}

	return nil
}

// CopyFile copies a file server-side. meta overrides name, parents, and
// optionally the pre-allocated ID of the copy. Folders cannot be copied
// (the API rejects them); callers enforce this before the round trip.
func (c *Client) CopyFile(ctx context.Context, fileID string, meta CreateRecord) (*Record, error) {
	c.logger.Info("copying file",
		slog.String("file_id", fileID),
		slog.String("name", meta.Name),
	)

	bodyBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling copy request: %w", err)
	}

	path := fmt.Sprintf("/files/%s/copy?fields=%s", url.PathEscape(fileID), url.QueryEscape(fileFields))

	return c.fetchRecord(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
}

// GenerateIDs pre-allocates file IDs that can be supplied to CreateFile or
// CopyFile. Pre-allocation makes create calls safely retryable.
func (c *Client) GenerateIDs(ctx context.Context, count int) ([]string, error) {
	c.logger.Info("generating file ids",
		slog.Int("count", count),
	)

	path := fmt.Sprintf("/files/generateIds?count=%d&space=drive", count)

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gr generateIDsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("api: decoding generateIds response: %w", err)
	}

	return gr.IDs, nil
}

// EmptyTrash permanently deletes everything in the trash.
func (c *Client) EmptyTrash(ctx context.Context) error {
	c.logger.Info("emptying trash")

	resp, err := c.Do(ctx, http.MethodDelete, "/files/trash", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("api: draining empty trash response body: %w", copyErr)
	}

	return nil
}

// List fetches a single page of a listing or search query.
// pageToken is the continuation token from the previous page, or empty for
// the first page. Pagination is the caller's loop: the next call passes
// Page.NextPageToken until it comes back empty.
func (c *Client) List(ctx context.Context, q ListQuery, pageToken string) (*Page, error) {
	query := url.Values{}
	query.Set("q", q.Query)
	query.Set("fields", "nextPageToken,files("+fileFields+")")

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	query.Set("pageSize", strconv.Itoa(pageSize))

	if q.OrderBy != "" {
		query.Set("orderBy", q.OrderBy)
	}

	if q.Spaces != "" {
		query.Set("spaces", q.Spaces)
	}

	if q.Corpora != "" {
		query.Set("corpora", q.Corpora)
	}

	if q.DriveID != "" {
		query.Set("driveId", q.DriveID)
		query.Set("includeItemsFromAllDrives", "true")
		query.Set("supportsAllDrives", "true")
	}

	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	resp, err := c.Do(ctx, http.MethodGet, "/files?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("api: decoding list response: %w", err)
	}

	page := &Page{
		Records:       make([]Record, 0, len(lr.Files)),
		NextPageToken: lr.NextPageToken,
	}

	for i := range lr.Files {
		page.Records = append(page.Records, lr.Files[i].toRecord(c.logger))
	}

	c.logger.Debug("fetched listing page",
		slog.Int("count", len(page.Records)),
		slog.Bool("has_more", page.NextPageToken != ""),
	)

	return page, nil
}
