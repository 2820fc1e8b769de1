package gdrive

import (
	"context"
	"io"

	"github.com/korpela/gdrive-go/internal/api"
)

// Gateway is the remote call surface the object graph is built on.
// *api.Client implements it; tests substitute an in-memory fake.
// Gateway errors are never interpreted here beyond errors.Is checks against
// the api sentinels — retry policy and transport concerns live below this
// interface.
type Gateway interface {
	// Metadata.
	GetFile(ctx context.Context, fileID string) (*api.Record, error)
	CreateFile(ctx context.Context, meta api.CreateRecord) (*api.Record, error)
	UpdateFile(ctx context.Context, fileID string, patch api.Patch, move *api.MoveOptions) (*api.Record, error)
	DeleteFile(ctx context.Context, fileID string) error
	CopyFile(ctx context.Context, fileID string, meta api.CreateRecord) (*api.Record, error)
	GenerateIDs(ctx context.Context, count int) ([]string, error)
	EmptyTrash(ctx context.Context) error

	// Listing. One page per call; the Collection drives the pagination loop.
	List(ctx context.Context, q api.ListQuery, pageToken string) (*api.Page, error)

	// Media. Upload dispatches on size: a negative size means unknown and
	// forces the single-request path.
	Upload(ctx context.Context, meta api.CreateRecord, content io.Reader, mimeType string, size int64) (*api.Record, error)
	UpdateContent(ctx context.Context, fileID string, content io.Reader, mimeType string) (*api.Record, error)
	Download(ctx context.Context, fileID string, w io.Writer) (int64, error)
	Export(ctx context.Context, fileID, mimeType string, w io.Writer) (int64, error)

	// Permissions.
	CreatePermission(ctx context.Context, fileID string, perm api.PermissionRecord) (*api.PermissionRecord, error)
	UpdatePermission(ctx context.Context, fileID, permissionID string, patch api.PermissionPatch) (*api.PermissionRecord, error)
	DeletePermission(ctx context.Context, fileID, permissionID string) error
	ListPermissions(ctx context.Context, fileID string) ([]api.PermissionRecord, error)
}
