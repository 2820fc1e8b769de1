package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// ChunkAlignment is the required alignment for resumable upload chunk sizes
// (256 KiB). All chunks except the final one must be a multiple of this value.
const ChunkAlignment = 256 * 1024

// MultipartUploadMaxSize is the ceiling for single-request multipart
// uploads (5 MB). Upload switches to a resumable session above it.
const MultipartUploadMaxSize = 5 * 1024 * 1024

// uploadChunkSize is the per-chunk size for resumable sessions (8 MiB,
// a multiple of ChunkAlignment as the endpoint requires).
const uploadChunkSize = 32 * ChunkAlignment

// statusResumeIncomplete is returned by the upload endpoint for accepted
// intermediate chunks. Not a registered constant in net/http.
const statusResumeIncomplete = 308

// UploadSession is an in-progress resumable upload. The URL is returned by
// the server when the session is created and carries its own authorization.
type UploadSession struct {
	UploadURL string
}

// Upload creates a new file with content. Small content (and content of
// unknown size, signalled by a negative size) goes up in a single
// multipart/related request; content larger than MultipartUploadMaxSize is
// streamed through a resumable upload session in aligned chunks.
func (c *Client) Upload(ctx context.Context, meta CreateRecord, content io.Reader, mimeType string, size int64) (*Record, error) {
	if size > MultipartUploadMaxSize {
		return c.uploadResumable(ctx, meta, content, mimeType, size)
	}

	c.logger.Info("multipart upload",
		slog.String("name", meta.Name),
		slog.String("mime_type", mimeType),
	)

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")

	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, fmt.Errorf("api: creating metadata part: %w", err)
	}

	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, fmt.Errorf("api: encoding upload metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)

	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return nil, fmt.Errorf("api: creating media part: %w", err)
	}

	if _, err := io.Copy(mediaPart, content); err != nil {
		return nil, fmt.Errorf("api: buffering upload content: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api: finalizing multipart body: %w", err)
	}

	uploadURL := c.uploadBaseURL + "/files?uploadType=multipart&fields=" + url.QueryEscape(fileFields)
	contentType := "multipart/related; boundary=" + mw.Boundary()

	resp, err := c.do(ctx, http.MethodPost, uploadURL, contentType, &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResource
	if decErr := json.NewDecoder(resp.Body).Decode(&fr); decErr != nil {
		return nil, fmt.Errorf("api: decoding upload response: %w", decErr)
	}

	rec := fr.toRecord(c.logger)

	return &rec, nil
}

// uploadResumable drives a full resumable upload: session creation, the
// chunk loop, and best-effort session cancellation when a chunk fails.
func (c *Client) uploadResumable(ctx context.Context, meta CreateRecord, content io.Reader, mimeType string, size int64) (*Record, error) {
	session, err := c.CreateUploadSession(ctx, meta, mimeType, size)
	if err != nil {
		return nil, err
	}

	var offset int64

	for offset < size {
		length := int64(uploadChunkSize)
		if remaining := size - offset; remaining < length {
			length = remaining
		}

		rec, err := c.UploadChunk(ctx, session, io.LimitReader(content, length), offset, length, size)
		if err != nil {
			if cancelErr := c.CancelUploadSession(ctx, session); cancelErr != nil {
				c.logger.Warn("canceling failed upload session",
					slog.String("error", cancelErr.Error()),
				)
			}

			return nil, fmt.Errorf("api: upload chunk at offset %d: %w", offset, err)
		}

		offset += length

		if rec != nil {
			return rec, nil // final chunk: upload complete
		}
	}

	return nil, fmt.Errorf("api: upload session for %s ended without a final record", meta.Name)
}

// UpdateContent replaces the content of an existing file in a single request.
// Metadata is untouched. The caller must check lock state first; a locked
// file fails server-side with 403.
func (c *Client) UpdateContent(ctx context.Context, fileID string, content io.Reader, mimeType string) (*Record, error) {
	c.logger.Info("updating file content",
		slog.String("file_id", fileID),
		slog.String("mime_type", mimeType),
	)

	uploadURL := fmt.Sprintf("%s/files/%s?uploadType=media&fields=%s",
		c.uploadBaseURL, url.PathEscape(fileID), url.QueryEscape(fileFields))

	resp, err := c.do(ctx, http.MethodPatch, uploadURL, mimeType, content)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResource
	if decErr := json.NewDecoder(resp.Body).Decode(&fr); decErr != nil {
		return nil, fmt.Errorf("api: decoding content update response: %w", decErr)
	}

	rec := fr.toRecord(c.logger)

	return &rec, nil
}

// CreateUploadSession starts a resumable upload for a new file.
// The session URL in the response authorizes subsequent UploadChunk calls.
func (c *Client) CreateUploadSession(ctx context.Context, meta CreateRecord, mimeType string, size int64) (*UploadSession, error) {
	c.logger.Info("creating upload session",
		slog.String("name", meta.Name),
		slog.Int64("size", size),
	)

	bodyBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling session request: %w", err)
	}

	uploadURL := c.uploadBaseURL + "/files?uploadType=resumable&fields=" + url.QueryEscape(fileFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("api: creating session request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("api: obtaining token for session: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", mimeType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return nil, newCallError(resp.StatusCode, body)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return nil, fmt.Errorf("api: session response missing Location header")
	}

	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return nil, fmt.Errorf("api: draining session response body: %w", drainErr)
	}

	c.logger.Debug("upload session created")

	return &UploadSession{UploadURL: sessionURL}, nil
}

// UploadChunk uploads one chunk of data to an upload session.
// Returns the completed Record on the final chunk (200/201), nil for
// intermediate chunks (308). offset is the byte offset, length is the chunk
// size, total is the full file size. The session URL carries its own
// authorization, so no Authorization header is sent.
func (c *Client) UploadChunk(
	ctx context.Context, session *UploadSession, chunk io.Reader,
	offset, length, total int64,
) (*Record, error) {
	c.logger.Debug("uploading chunk",
		slog.Int64("offset", offset),
		slog.Int64("length", length),
		slog.Int64("total", total),
	)

	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, chunk)
	if err != nil {
		return nil, fmt.Errorf("api: creating chunk upload request: %w", err)
	}

	req.Header.Set("Content-Range", contentRange)
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = length

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("chunk upload request failed",
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("api: chunk upload request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.handleChunkResponse(resp)
}

// handleChunkResponse processes the HTTP response from an upload chunk request.
// 308 means intermediate chunk accepted; 200/201 means upload complete with
// the finished file resource.
func (c *Client) handleChunkResponse(resp *http.Response) (*Record, error) {
	switch resp.StatusCode {
	case statusResumeIncomplete:
		// Intermediate chunk accepted. Drain body to reuse connection.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return nil, fmt.Errorf("api: draining chunk response body: %w", drainErr)
		}

		c.logger.Debug("intermediate chunk accepted")

		return nil, nil //nolint:nilnil // nil record signals an intermediate chunk

	case http.StatusOK, http.StatusCreated:
		// Upload complete — response contains the created file.
		var fr fileResource
		if decErr := json.NewDecoder(resp.Body).Decode(&fr); decErr != nil {
			return nil, fmt.Errorf("api: decoding final chunk response: %w", decErr)
		}

		rec := fr.toRecord(c.logger)

		c.logger.Debug("upload complete",
			slog.String("file_id", rec.ID),
			slog.String("name", rec.Name),
		)

		return &rec, nil

	default:
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		c.logger.Error("chunk upload failed",
			slog.Int("status", resp.StatusCode),
		)

		return nil, newCallError(resp.StatusCode, body)
	}
}

// CancelUploadSession abandons an in-progress upload session.
func (c *Client) CancelUploadSession(ctx context.Context, session *UploadSession) error {
	c.logger.Info("canceling upload session")

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, session.UploadURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("api: creating cancel session request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: cancel session request failed: %w", err)
	}
	defer resp.Body.Close()

	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return fmt.Errorf("api: draining cancel session response body: %w", drainErr)
	}

	// The upload endpoint answers a cancel with 499.
	const statusClientClosedRequest = 499
	if resp.StatusCode != statusClientClosedRequest && resp.StatusCode != http.StatusNoContent {
		c.logger.Error("cancel upload session returned unexpected status",
			slog.Int("status", resp.StatusCode),
		)

		return fmt.Errorf("api: cancel upload session failed with status %d", resp.StatusCode)
	}

	c.logger.Debug("upload session canceled")

	return nil
}
