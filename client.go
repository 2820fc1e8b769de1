// Package gdrive is a session-oriented client library for Google Drive.
//
// A Client owns a session: a registry guaranteeing that each remote file is
// represented by exactly one *File instance for the client's lifetime, so
// attribute updates and cache invalidation are visible through every
// reference. Folder listings are lazy paginated Collections that fetch
// pages only as far as iteration demands.
//
// All network traffic goes through the Gateway interface; internal/api
// provides the production implementation against the Drive v3 REST API.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/korpela/gdrive-go/internal/api"
)

// DefaultExportMIME is the conversion target used when downloading a
// Google-native document without an explicit export type.
const DefaultExportMIME = "application/pdf"

// DefaultPageSize is the per-page record count requested from the gateway.
const DefaultPageSize = 100

// Client is the entry point for all Drive operations. It is safe to share
// the Client itself across goroutines, but the *File and *Collection values
// it hands out are not synchronized.
type Client struct {
	gw      Gateway
	logger  *slog.Logger
	session *session

	pageSize   int
	exportMIME string

	// Resolved lazily on first Root call; the "root" alias is accepted by
	// the remote end but the canonical id is needed for parent matching.
	rootID string
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize overrides the per-page record count for listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithExportMIME overrides the default export conversion target for
// native-document downloads.
func WithExportMIME(mimeType string) Option {
	return func(c *Client) {
		if mimeType != "" {
			c.exportMIME = mimeType
		}
	}
}

// NewClient creates a Client around the given gateway. If logger is nil,
// slog.Default() is used.
func NewClient(gw Gateway, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		gw:         gw,
		logger:     logger,
		session:    newSession(),
		pageSize:   DefaultPageSize,
		exportMIME: DefaultExportMIME,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// invalidateFolder drops a registered folder's cached listing. The "root"
// alias is mapped to the canonical id once known, since the root folder is
// registered under its real id and an alias lookup would silently miss it.
func (c *Client) invalidateFolder(id string) {
	if id == rootAlias && c.rootID != "" {
		id = c.rootID
	}

	c.session.invalidateFolder(id)
}

// listQuery wraps a raw query string with the client's paging defaults.
func (c *Client) listQuery(query string) api.ListQuery {
	return api.ListQuery{Query: query, PageSize: c.pageSize}
}

// FileByID resolves a remote file by identifier. If the session already
// holds an instance for the id it is returned without any gateway call;
// otherwise the record is fetched and registered.
func (c *Client) FileByID(ctx context.Context, id string) (*File, error) {
	return c.session.resolve(id, func() (*File, error) {
		rec, err := c.gw.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}

		return c.newFileFromRecord(rec)
	})
}

// Root returns the drive's root folder. The remote "root" alias is resolved
// to its canonical identifier once and cached for the client's lifetime.
func (c *Client) Root(ctx context.Context) (*File, error) {
	if c.rootID != "" {
		return c.FileByID(ctx, c.rootID)
	}

	rec, err := c.gw.GetFile(ctx, rootAlias)
	if err != nil {
		return nil, err
	}

	root, err := c.adopt(rec)
	if err != nil {
		return nil, err
	}

	c.rootID = root.id

	return root, nil
}

// FolderByID resolves a remote folder by identifier, failing with
// CapabilityError when the id names a non-folder.
func (c *Client) FolderByID(ctx context.Context, id string) (*File, error) {
	f, err := c.FileByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !f.IsFolder() {
		return nil, &CapabilityError{Op: "open folder", Kind: f.kind}
	}

	return f, nil
}

// Search returns a lazy listing for a raw Drive query expression. The
// expression is passed through verbatim.
func (c *Client) Search(query string) *Collection {
	return newCollection(c, c.listQuery(query), "search")
}

// FindFiles returns a lazy listing of non-folder files matching the
// criteria.
func (c *Client) FindFiles(criteria Find) *Collection {
	return newCollection(c, c.listQuery(criteria.query(false, true)), "find files")
}

// FindFolders returns a lazy listing of folders matching the criteria.
func (c *Client) FindFolders(criteria Find) *Collection {
	return newCollection(c, c.listQuery(criteria.query(true, false)), "find folders")
}

// FindOrCreateFolder returns the folder with the given title under
// parentID, creating it when absent. If several folders share the title the
// first match in server order is used and a warning is logged.
func (c *Client) FindOrCreateFolder(ctx context.Context, parentID, title string) (*File, error) {
	if parentID == "" {
		parentID = rootAlias
	}

	matches := c.FindFolders(Find{Title: title, ParentID: parentID})

	existing, err := matches.ByName(ctx, title)
	if err == nil {
		return existing, nil
	}

	var ambiguous *AmbiguousMatchError
	if errors.As(err, &ambiguous) {
		c.logger.Warn("multiple folders share title, using first",
			"title", title, "parent_id", parentID, "matches", len(ambiguous.Matches))

		return ambiguous.Matches[0], nil
	}

	if !isNotFound(err) {
		return nil, err
	}

	meta := api.CreateRecord{
		Name:     title,
		MimeType: MimeFolder,
		Parents:  []string{parentID},
	}

	rec, err := c.gw.CreateFile(ctx, meta)
	if err != nil {
		return nil, err
	}

	c.invalidateFolder(parentID)

	return c.adopt(rec)
}

// Trashed returns a lazy listing of everything in the trash.
func (c *Client) Trashed() *Collection {
	return newCollection(c, c.listQuery("trashed = true"), "trash")
}

// Starred returns a lazy listing of all starred, non-trashed files.
func (c *Client) Starred() *Collection {
	return newCollection(c, c.listQuery("starred = true and trashed = false"), "starred")
}

// EmptyTrash permanently removes everything in the trash with a single
// gateway call. Irreversible.
func (c *Client) EmptyTrash(ctx context.Context) error {
	if err := c.gw.EmptyTrash(ctx); err != nil {
		return fmt.Errorf("emptying trash: %w", err)
	}

	return nil
}
