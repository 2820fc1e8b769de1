package gdrive

import (
	"context"
	"strings"
	"time"

	"github.com/korpela/gdrive-go/internal/api"
)

// Role is the access level granted by a permission.
type Role string

const (
	RoleReader    Role = "reader"
	RoleCommenter Role = "commenter"
	RoleWriter    Role = "writer"
	RoleOwner     Role = "owner"
)

// Permission is one grant on a file. Instances are returned by Share and
// Permissions and stay bound to the file they were read from.
type Permission struct {
	f *File

	id         string
	granteeTyp string
	role       Role
	email      string
	domain     string
	name       string
	expiresAt  time.Time
}

// ID returns the permission's identifier.
func (p *Permission) ID() string { return p.id }

// Role returns the granted access level.
func (p *Permission) Role() Role { return p.role }

// Grantee returns a human-readable description of who holds the grant:
// an email address, a domain, or "anyone".
func (p *Permission) Grantee() string {
	switch {
	case p.email != "":
		return p.email
	case p.domain != "":
		return p.domain
	default:
		return p.granteeTyp
	}
}

// DisplayName returns the grantee's display name when the remote end
// provides one.
func (p *Permission) DisplayName() string { return p.name }

// ExpiresAt returns the grant's expiration time, zero when it never
// expires.
func (p *Permission) ExpiresAt() time.Time { return p.expiresAt }

// granteeType infers the Drive permission type from the target string:
// "anyone" shares publicly, anything containing "@" is a user address, and
// everything else is treated as a domain.
func granteeType(target string) string {
	switch {
	case target == "anyone":
		return "anyone"
	case strings.Contains(target, "@"):
		return "user"
	default:
		return "domain"
	}
}

func (f *File) newPermission(rec *api.PermissionRecord) *Permission {
	p := &Permission{
		f:          f,
		id:         rec.ID,
		granteeTyp: rec.Type,
		role:       Role(rec.Role),
		email:      rec.EmailAddress,
		domain:     rec.Domain,
		name:       rec.DisplayName,
	}

	if rec.ExpirationTime != "" {
		if t, err := time.Parse(time.RFC3339, rec.ExpirationTime); err == nil {
			p.expiresAt = t
		} else {
			f.c.logger.Warn("unparseable permission expiration, treating as unset",
				"file_id", f.id, "permission_id", rec.ID, "value", rec.ExpirationTime)
		}
	}

	return p
}

// Share grants role on the file to target, which may be an email address, a
// domain, or the literal "anyone".
func (f *File) Share(ctx context.Context, target string, role Role) (*Permission, error) {
	perm := api.PermissionRecord{
		Type: granteeType(target),
		Role: string(role),
	}

	switch perm.Type {
	case "user":
		perm.EmailAddress = target
	case "domain":
		perm.Domain = target
	}

	rec, err := f.c.gw.CreatePermission(ctx, f.id, perm)
	if err != nil {
		return nil, err
	}

	return f.newPermission(rec), nil
}

// Permissions lists all grants on the file.
func (f *File) Permissions(ctx context.Context) ([]*Permission, error) {
	recs, err := f.c.gw.ListPermissions(ctx, f.id)
	if err != nil {
		return nil, err
	}

	perms := make([]*Permission, 0, len(recs))
	for i := range recs {
		perms = append(perms, f.newPermission(&recs[i]))
	}

	return perms, nil
}

// SetRole changes the grant's access level. Setting the current role is a
// no-op.
func (p *Permission) SetRole(ctx context.Context, role Role) error {
	if role == p.role {
		return nil
	}

	rec, err := p.f.c.gw.UpdatePermission(ctx, p.f.id, p.id, api.PermissionPatch{Role: string(role)})
	if err != nil {
		return err
	}

	p.role = Role(rec.Role)

	return nil
}

// SetExpiration sets or clears the grant's expiration. A zero time clears
// it. The owner role cannot expire.
func (p *Permission) SetExpiration(ctx context.Context, expiresAt time.Time) error {
	patch := api.PermissionPatch{Role: string(p.role)}
	if expiresAt.IsZero() {
		if p.expiresAt.IsZero() {
			return nil
		}

		patch.RemoveExpiration = true
	} else {
		patch.ExpirationTime = expiresAt.UTC().Format(time.RFC3339)
	}

	if _, err := p.f.c.gw.UpdatePermission(ctx, p.f.id, p.id, patch); err != nil {
		return err
	}

	p.expiresAt = expiresAt

	return nil
}

// Delete revokes the grant.
func (p *Permission) Delete(ctx context.Context) error {
	return p.f.c.gw.DeletePermission(ctx, p.f.id, p.id)
}
