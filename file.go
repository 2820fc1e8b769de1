package gdrive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/korpela/gdrive-go/internal/api"
)

// File is the local representation of one remote file-or-folder record.
// Instances are created only by the client's record factory and handed out
// through the session, so within one Client there is exactly one File per
// remote ID.
//
// Every mutating method calls the gateway first and updates the cached
// field only after the call succeeds; there are no optimistic local writes.
// Folder-only methods fail with CapabilityError on other kinds.
//
// A File is not safe for concurrent use from multiple goroutines.
type File struct {
	c *Client

	id             string
	kind           Kind
	mimeType       string
	shortcutTarget string

	title       string
	description string
	parentID    string
	trashed     bool
	starred     bool
	locked      bool
	lockReason  string

	// Immutable after creation; refreshed only by an explicit Refresh.
	createdAt   time.Time
	modifiedAt  time.Time
	size        int64
	webViewLink string

	// Lazily created listing of live children. Folder kind only.
	// Dropped by session.invalidateFolder when membership changes.
	children *Collection
}

// ID returns the remote identifier. Immutable.
func (f *File) ID() string { return f.id }

// Kind returns the file/folder/shortcut discriminator. Immutable.
func (f *File) Kind() Kind { return f.kind }

// MimeType returns the full MIME type. Immutable.
func (f *File) MimeType() string { return f.mimeType }

// Title returns the display name. Not guaranteed unique among siblings.
func (f *File) Title() string { return f.title }

// Description returns the free-form description.
func (f *File) Description() string { return f.description }

// ParentID returns the canonical containing folder's identifier.
func (f *File) ParentID() string { return f.parentID }

// Trashed reports whether the file is in the trash.
func (f *File) Trashed() bool { return f.trashed }

// Starred reports whether the file is starred.
func (f *File) Starred() bool { return f.starred }

// Locked reports the content lock flag and its optional reason.
func (f *File) Locked() (bool, string) { return f.locked, f.lockReason }

// CreatedAt returns the remote creation time.
func (f *File) CreatedAt() time.Time { return f.createdAt }

// ModifiedAt returns the last remote modification time known locally.
func (f *File) ModifiedAt() time.Time { return f.modifiedAt }

// Size returns the content size in bytes. Zero for folders and native
// documents, which have no raw byte representation.
func (f *File) Size() int64 { return f.size }

// URL returns the browser view link for the file.
func (f *File) URL() string { return f.webViewLink }

// IsFolder reports whether folder-only operations are legal on this file.
func (f *File) IsFolder() bool { return f.kind == KindFolder }

// IsShortcut reports whether this file is a shortcut to another file.
func (f *File) IsShortcut() bool { return f.kind == KindShortcut }

// ShortcutTargetID returns the target of a shortcut, or "" for other kinds.
func (f *File) ShortcutTargetID() string { return f.shortcutTarget }

// IsNativeDocument reports whether this is a Google-native document type
// (Docs, Sheets, ...) requiring export-time conversion before download.
func (f *File) IsNativeDocument() bool {
	return f.kind == KindFile && strings.HasPrefix(f.mimeType, nativeDocPrefix)
}

// Parent resolves the canonical parent folder.
func (f *File) Parent(ctx context.Context) (*File, error) {
	return f.c.FileByID(ctx, f.parentID)
}

// ensureFolder guards folder-only operations.
func (f *File) ensureFolder(op string) error {
	if !f.IsFolder() {
		return &CapabilityError{Op: op, Kind: f.kind}
	}

	return nil
}

// ensureRegularFile guards operations that need raw content bytes.
func (f *File) ensureRegularFile(op string) error {
	if f.kind != KindFile || f.IsNativeDocument() {
		return &CapabilityError{Op: op, Kind: f.kind}
	}

	return nil
}

// Refresh re-reads the remote record and replaces every cached attribute,
// including the ones that are otherwise immutable after creation. A
// folder's children listing is dropped and re-created on next access.
func (f *File) Refresh(ctx context.Context) error {
	rec, err := f.c.gw.GetFile(ctx, f.id)
	if err != nil {
		return err
	}

	fresh, err := f.c.newFileFromRecord(rec)
	if err != nil {
		return err
	}

	f.title = fresh.title
	f.description = fresh.description
	f.parentID = fresh.parentID
	f.trashed = fresh.trashed
	f.starred = fresh.starred
	f.locked = fresh.locked
	f.lockReason = fresh.lockReason
	f.createdAt = fresh.createdAt
	f.modifiedAt = fresh.modifiedAt
	f.size = fresh.size
	f.webViewLink = fresh.webViewLink
	f.children = nil

	return nil
}

// Rename changes the display name.
func (f *File) Rename(ctx context.Context, newTitle string) error {
	if newTitle == f.title {
		return nil
	}

	if _, err := f.c.gw.UpdateFile(ctx, f.id, api.Patch{Name: &newTitle}, nil); err != nil {
		return err
	}

	f.title = newTitle

	return nil
}

// SetDescription changes the free-form description.
func (f *File) SetDescription(ctx context.Context, desc string) error {
	if desc == f.description {
		return nil
	}

	if _, err := f.c.gw.UpdateFile(ctx, f.id, api.Patch{Description: &desc}, nil); err != nil {
		return err
	}

	f.description = desc

	return nil
}

// SetStarred toggles the star flag. Setting the current value is a no-op
// with no gateway call.
func (f *File) SetStarred(ctx context.Context, starred bool) error {
	if starred == f.starred {
		return nil
	}

	if _, err := f.c.gw.UpdateFile(ctx, f.id, api.Patch{Starred: &starred}, nil); err != nil {
		return err
	}

	f.starred = starred

	return nil
}

// setTrashed flips the trash flag. Membership of the parent folder changes,
// so its cached listing is invalidated.
func (f *File) setTrashed(ctx context.Context, trashed bool) error {
	if trashed == f.trashed {
		return nil
	}

	if _, err := f.c.gw.UpdateFile(ctx, f.id, api.Patch{Trashed: &trashed}, nil); err != nil {
		return err
	}

	f.trashed = trashed
	f.c.invalidateFolder(f.parentID)

	return nil
}

// Trash moves the file to the trash. It can be restored until the trash is
// emptied.
func (f *File) Trash(ctx context.Context) error {
	return f.setTrashed(ctx, true)
}

// Restore takes the file back out of the trash.
func (f *File) Restore(ctx context.Context) error {
	return f.setTrashed(ctx, false)
}

// Delete permanently deletes the remote file, bypassing the trash.
// Irreversible. The local instance stays registered but is orphaned.
func (f *File) Delete(ctx context.Context) error {
	if err := f.c.gw.DeleteFile(ctx, f.id); err != nil {
		return err
	}

	f.c.invalidateFolder(f.parentID)

	return nil
}

// Lock sets the content restriction flag with an optional reason.
// Setting the current state is a no-op.
func (f *File) Lock(ctx context.Context, reason string) error {
	return f.setLocked(ctx, true, reason)
}

// Unlock clears the content restriction flag.
func (f *File) Unlock(ctx context.Context) error {
	return f.setLocked(ctx, false, "")
}

func (f *File) setLocked(ctx context.Context, locked bool, reason string) error {
	if locked == f.locked && reason == f.lockReason {
		return nil
	}

	patch := api.Patch{
		ContentRestrictions: []api.ContentRestriction{{ReadOnly: locked, Reason: reason}},
	}

	if _, err := f.c.gw.UpdateFile(ctx, f.id, patch, nil); err != nil {
		return err
	}

	f.locked = locked
	f.lockReason = reason

	return nil
}

// Move reparents the file into newParent, which must be a folder.
// Both the old and the new parent's cached listings are invalidated.
func (f *File) Move(ctx context.Context, newParent *File) error {
	if !newParent.IsFolder() {
		return &CapabilityError{Op: "move into", Kind: newParent.kind}
	}

	return f.MoveToID(ctx, newParent.id)
}

// MoveToID reparents the file into the folder with the given ID. The parent
// does not have to be loaded into the session.
func (f *File) MoveToID(ctx context.Context, newParentID string) error {
	if newParentID == f.parentID {
		return nil
	}

	move := &api.MoveOptions{AddParents: newParentID, RemoveParents: f.parentID}
	if _, err := f.c.gw.UpdateFile(ctx, f.id, api.Patch{}, move); err != nil {
		return err
	}

	oldParent := f.parentID
	f.parentID = newParentID

	f.c.invalidateFolder(oldParent)
	f.c.invalidateFolder(newParentID)

	return nil
}

// Copy duplicates the file server-side. title defaults to "<title> (copy)"
// and parentID to the file's current parent. Folders, native documents, and
// locked files cannot be copied. The copy's ID is pre-allocated via
// GenerateIDs so the create call is safely retryable.
func (f *File) Copy(ctx context.Context, title, parentID string) (*File, error) {
	if err := f.ensureRegularFile("copy"); err != nil {
		return nil, err
	}

	if f.locked {
		return nil, &CapabilityError{Op: "copy locked file", Kind: f.kind}
	}

	if title == "" {
		title = f.title + " (copy)"
	}

	if parentID == "" {
		parentID = f.parentID
	}

	ids, err := f.c.gw.GenerateIDs(ctx, 1)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("gdrive: gateway returned no pre-allocated ids")
	}

	meta := api.CreateRecord{
		ID:      ids[0],
		Name:    title,
		Parents: []string{parentID},
	}

	rec, err := f.c.gw.CopyFile(ctx, f.id, meta)
	if err != nil {
		return nil, err
	}

	f.c.invalidateFolder(parentID)

	return f.c.adopt(rec)
}

// CreateShortcut creates a shortcut to this file in the given parent folder.
// title defaults to "Shortcut to <title>".
func (f *File) CreateShortcut(ctx context.Context, parentID, title string) (*File, error) {
	if title == "" {
		title = "Shortcut to " + f.title
	}

	if parentID == "" {
		parentID = f.parentID
	}

	meta := api.CreateRecord{
		Name:            title,
		MimeType:        MimeShortcut,
		Parents:         []string{parentID},
		ShortcutDetails: &api.ShortcutTarget{TargetID: f.id},
	}

	rec, err := f.c.gw.CreateFile(ctx, meta)
	if err != nil {
		return nil, err
	}

	f.c.invalidateFolder(parentID)

	return f.c.adopt(rec)
}

// Update replaces the file's content. Locked files are rejected locally
// before any gateway call; folders and native documents have no raw content
// to replace.
func (f *File) Update(ctx context.Context, content io.Reader, mimeType string) error {
	if err := f.ensureRegularFile("update content"); err != nil {
		return err
	}

	if f.locked {
		return &LockedError{ID: f.id, Reason: f.lockReason}
	}

	rec, err := f.c.gw.UpdateContent(ctx, f.id, content, mimeType)
	if err != nil {
		return err
	}

	f.size = rec.Size
	f.modifiedAt = rec.ModifiedAt

	return nil
}

// Download streams the file's content to w and returns the bytes written.
// Native documents are exported using the client's default export MIME
// type; folders have no content.
func (f *File) Download(ctx context.Context, w io.Writer) (int64, error) {
	if f.IsFolder() {
		return 0, &CapabilityError{Op: "download", Kind: f.kind}
	}

	if f.IsNativeDocument() {
		return f.c.gw.Export(ctx, f.id, f.c.exportMIME, w)
	}

	return f.c.gw.Download(ctx, f.id, w)
}

// Export converts a native document to the given MIME type and streams the
// result to w. Only native documents can be exported.
func (f *File) Export(ctx context.Context, mimeType string, w io.Writer) (int64, error) {
	if !f.IsNativeDocument() {
		return 0, &CapabilityError{Op: "export", Kind: f.kind}
	}

	return f.c.gw.Export(ctx, f.id, mimeType, w)
}

// Children returns the lazy listing of this folder's live (non-trashed)
// contents. The listing is created on first access and owned by the folder
// until a membership-changing mutation or Refresh drops it.
func (f *File) Children() (*Collection, error) {
	if err := f.ensureFolder("list children"); err != nil {
		return nil, err
	}

	if f.children == nil {
		f.children = newCollection(f.c, f.c.listQuery(childrenQuery(f.id)), f.title)
	}

	return f.children, nil
}

// TrashedChildren returns a listing of this folder's trashed contents.
// Unlike Children, it is not cached on the folder.
func (f *File) TrashedChildren() (*Collection, error) {
	if err := f.ensureFolder("list trashed children"); err != nil {
		return nil, err
	}

	return newCollection(f.c, f.c.listQuery(trashedChildrenQuery(f.id)), f.title), nil
}

// Child returns the single child with the given title, delegating to
// Children().ByName.
func (f *File) Child(ctx context.Context, title string) (*File, error) {
	children, err := f.Children()
	if err != nil {
		return nil, err
	}

	return children.ByName(ctx, title)
}

// CreateFolder creates a subfolder with the given title.
func (f *File) CreateFolder(ctx context.Context, title string) (*File, error) {
	if err := f.ensureFolder("create subfolder"); err != nil {
		return nil, err
	}

	meta := api.CreateRecord{
		Name:     title,
		MimeType: MimeFolder,
		Parents:  []string{f.id},
	}

	rec, err := f.c.gw.CreateFile(ctx, meta)
	if err != nil {
		return nil, err
	}

	f.c.invalidateFolder(f.id)

	return f.c.adopt(rec)
}

// Upload creates a new file with the given content inside this folder.
// The content size is unknown here, so the single-request path is used;
// UploadFile knows the size and lets large files go through a resumable
// session.
func (f *File) Upload(ctx context.Context, name string, content io.Reader, mimeType string) (*File, error) {
	return f.upload(ctx, name, content, mimeType, -1)
}

func (f *File) upload(ctx context.Context, name string, content io.Reader, mimeType string, size int64) (*File, error) {
	if err := f.ensureFolder("upload"); err != nil {
		return nil, err
	}

	meta := api.CreateRecord{
		Name:    name,
		Parents: []string{f.id},
	}

	rec, err := f.c.gw.Upload(ctx, meta, content, mimeType, size)
	if err != nil {
		return nil, err
	}

	f.c.invalidateFolder(f.id)

	return f.c.adopt(rec)
}
