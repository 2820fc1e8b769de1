package gdrive

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const fallbackMIME = "application/octet-stream"

// mimeForFilename guesses a MIME type from the filename extension.
func mimeForFilename(name string) string {
	if typ := mime.TypeByExtension(filepath.Ext(name)); typ != "" {
		// TypeByExtension may append a charset parameter; Drive wants the
		// bare media type.
		if i := strings.IndexByte(typ, ';'); i >= 0 {
			typ = typ[:i]
		}

		return typ
	}

	return fallbackMIME
}

// UploadFile uploads the local file at localPath into the folder, named
// after its basename. The stat size routes large files through a resumable
// upload session instead of a single request.
func (f *File) UploadFile(ctx context.Context, localPath string) (*File, error) {
	if err := f.ensureFolder("upload file"); err != nil {
		return nil, err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, err
	}

	name := filepath.Base(localPath)

	return f.upload(ctx, name, src, mimeForFilename(name), info.Size())
}

// UploadDir mirrors the local directory tree rooted at localDir into this
// folder. Individual files that fail to upload are logged and skipped so
// one bad file does not abort the whole transfer; directory-level failures
// abort. Symlinks and other non-regular files are ignored.
func (f *File) UploadDir(ctx context.Context, localDir string) error {
	if err := f.ensureFolder("upload directory"); err != nil {
		return err
	}

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		localPath := filepath.Join(localDir, entry.Name())

		if entry.IsDir() {
			sub, err := f.c.FindOrCreateFolder(ctx, f.id, entry.Name())
			if err != nil {
				return err
			}

			if err := sub.UploadDir(ctx, localPath); err != nil {
				return err
			}

			continue
		}

		if !entry.Type().IsRegular() {
			f.c.logger.Warn("skipping non-regular file", "path", localPath)
			continue
		}

		if _, err := f.UploadFile(ctx, localPath); err != nil {
			f.c.logger.Warn("upload failed, continuing", "path", localPath, "error", err)
		}
	}

	return nil
}

// DownloadFile downloads the file's content to localPath, creating parent
// directories as needed. Native documents are exported with the client's
// default export type.
func (f *File) DownloadFile(ctx context.Context, localPath string) error {
	if f.IsFolder() {
		return &CapabilityError{Op: "download", Kind: f.kind}
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}

	if _, err := f.Download(ctx, dst); err != nil {
		dst.Close()
		os.Remove(localPath)

		return err
	}

	return dst.Close()
}

// DownloadDir mirrors this folder's subtree into the local directory
// localDir. Individual files that fail to download are logged and skipped;
// listing failures abort.
func (f *File) DownloadDir(ctx context.Context, localDir string) error {
	if err := f.ensureFolder("download directory"); err != nil {
		return err
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return err
	}

	return f.c.Walk(ctx, f, func(drivePath string, entry *File) error {
		localPath := filepath.Join(localDir, filepath.FromSlash(drivePath))

		if entry.IsFolder() {
			return os.MkdirAll(localPath, 0o755)
		}

		if entry.IsShortcut() {
			f.c.logger.Warn("skipping shortcut", "path", drivePath)
			return nil
		}

		if err := entry.DownloadFile(ctx, localPath); err != nil {
			f.c.logger.Warn("download failed, continuing", "path", drivePath, "error", err)
		}

		return nil
	})
}

// PathTo resolves a slash-separated title path relative to folder,
// returning the file at its end.
func (c *Client) PathTo(ctx context.Context, folder *File, drivePath string) (*File, error) {
	current := folder

	for _, part := range strings.Split(path.Clean(drivePath), "/") {
		if part == "" || part == "." {
			continue
		}

		next, err := current.Child(ctx, part)
		if err != nil {
			return nil, err
		}

		current = next
	}

	return current, nil
}
