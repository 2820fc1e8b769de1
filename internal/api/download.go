package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Download streams the raw content of a file to the given writer.
// Returns the number of bytes written. Folders and native documents have no
// raw bytes — the API answers 403 for them; use Export instead.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	c.logger.Info("downloading file",
		slog.String("file_id", fileID),
	)

	path := fmt.Sprintf("/files/%s?alt=media", url.PathEscape(fileID))

	return c.stream(ctx, path, w)
}

// Export converts a native document to the given MIME type and streams the
// result to the writer. Only native documents can be exported.
func (c *Client) Export(ctx context.Context, fileID, mimeType string, w io.Writer) (int64, error) {
	c.logger.Info("exporting file",
		slog.String("file_id", fileID),
		slog.String("mime_type", mimeType),
	)

	path := fmt.Sprintf("/files/%s/export?mimeType=%s", url.PathEscape(fileID), url.QueryEscape(mimeType))

	return c.stream(ctx, path, w)
}

// stream executes a GET and copies the response body to the writer.
// Streaming happens after Do returns, so a mid-stream failure surfaces to
// the caller with the bytes already written.
func (c *Client) stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming content failed",
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("api: streaming content: %w", copyErr)
	}

	c.logger.Debug("download complete",
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
