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
)

// permissionFields is the fields selector for permission calls.
const permissionFields = "id,type,role,emailAddress,domain,displayName,expirationTime"

// PermissionRecord is one grant on a file.
type PermissionRecord struct {
	ID             string `json:"id"`
	Type           string `json:"type"` // user | group | domain | anyone
	Role           string `json:"role"` // owner | organizer | fileOrganizer | writer | commenter | reader
	EmailAddress   string `json:"emailAddress,omitempty"`
	Domain         string `json:"domain,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ExpirationTime string `json:"expirationTime,omitempty"` // RFC3339, empty when unset
}

// PermissionPatch is the writable subset of a permission.
type PermissionPatch struct {
	Role             string `json:"role,omitempty"`
	ExpirationTime   string `json:"expirationTime,omitempty"`
	RemoveExpiration bool   `json:"-"` // sent as a query parameter
}

type listPermissionsResponse struct {
	Permissions []PermissionRecord `json:"permissions"`
}

// CreatePermission grants access to a file. The record's Type, Role, and
// (for user/domain grants) EmailAddress or Domain must be set.
func (c *Client) CreatePermission(ctx context.Context, fileID string, perm PermissionRecord) (*PermissionRecord, error) {
	c.logger.Info("creating permission",
		slog.String("file_id", fileID),
		slog.String("type", perm.Type),
		slog.String("role", perm.Role),
	)

	bodyBytes, err := json.Marshal(perm)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling permission request: %w", err)
	}

	path := fmt.Sprintf("/files/%s/permissions?fields=%s",
		url.PathEscape(fileID), url.QueryEscape(permissionFields))

	return c.fetchPermission(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
}

// UpdatePermission changes the role or expiration of an existing grant.
func (c *Client) UpdatePermission(ctx context.Context, fileID, permissionID string, patch PermissionPatch) (*PermissionRecord, error) {
	c.logger.Info("updating permission",
		slog.String("file_id", fileID),
		slog.String("permission_id", permissionID),
	)

	query := url.Values{}
	query.Set("fields", permissionFields)

	if patch.RemoveExpiration {
		query.Set("removeExpiration", "true")
	}

	bodyBytes, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("api: marshaling permission patch: %w", err)
	}

	path := fmt.Sprintf("/files/%s/permissions/%s?%s",
		url.PathEscape(fileID), url.PathEscape(permissionID), query.Encode())

	return c.fetchPermission(ctx, http.MethodPatch, path, bytes.NewReader(bodyBytes))
}

// DeletePermission revokes a grant. Returns nil on success (HTTP 204).
func (c *Client) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	c.logger.Info("deleting permission",
		slog.String("file_id", fileID),
		slog.String("permission_id", permissionID),
	)

	path := fmt.Sprintf("/files/%s/permissions/%s",
		url.PathEscape(fileID), url.PathEscape(permissionID))

	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("api: draining permission delete response body: %w", copyErr)
	}

	return nil
}

// ListPermissions returns all grants on a file.
func (c *Client) ListPermissions(ctx context.Context, fileID string) ([]PermissionRecord, error) {
	c.logger.Info("listing permissions",
		slog.String("file_id", fileID),
	)

	path := fmt.Sprintf("/files/%s/permissions?fields=%s",
		url.PathEscape(fileID), url.QueryEscape("permissions("+permissionFields+")"))

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lr listPermissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("api: decoding permissions response: %w", err)
	}

	return lr.Permissions, nil
}

func (c *Client) fetchPermission(ctx context.Context, method, path string, body io.Reader) (*PermissionRecord, error) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pr PermissionRecord
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("api: decoding permission response: %w", err)
	}

	return &pr, nil
}
