package gdrive

import (
	"fmt"
	"log/slog"

	"github.com/korpela/gdrive-go/internal/api"
)

// rootAlias is the well-known alias the API accepts for the root folder.
// Records without a parent (the root itself, orphans) get it as their
// canonical parent, matching what the API does on a subsequent move.
const rootAlias = "root"

// newFileFromRecord converts a gateway record into a File. It performs no
// registration — that is the caller's job, which keeps record parsing
// side-effect free and independently testable.
//
// A record without an ID violates the input contract and is a caller error.
// When the remote store reports more than one parent, the first is kept as
// the canonical parent and a diagnostic is logged; the extra parents are
// dropped without error.
func (c *Client) newFileFromRecord(rec *api.Record) (*File, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("gdrive: metadata record has no id")
	}

	parentID := rootAlias
	if c.rootID != "" {
		// Parentless records hang off the root; use the canonical id once
		// known so parent invalidation reaches the registered root folder.
		parentID = c.rootID
	}

	if len(rec.Parents) > 0 {
		parentID = rec.Parents[0]
	}

	if len(rec.Parents) > 1 {
		c.logger.Warn("file has multiple parents, keeping the first as canonical",
			slog.String("file_id", rec.ID),
			slog.Int("parents", len(rec.Parents)),
		)
	}

	return &File{
		c:              c,
		id:             rec.ID,
		kind:           kindOf(rec.MimeType),
		mimeType:       rec.MimeType,
		title:          rec.Name,
		description:    rec.Description,
		parentID:       parentID,
		trashed:        rec.Trashed,
		starred:        rec.Starred,
		locked:         rec.Restricted,
		lockReason:     rec.RestrictionReason,
		createdAt:      rec.CreatedAt,
		modifiedAt:     rec.ModifiedAt,
		size:           rec.Size,
		webViewLink:    rec.WebViewLink,
		shortcutTarget: rec.ShortcutTargetID,
	}, nil
}

// adopt builds a File from a record and hands it to the session, returning
// the already registered instance when the ID is known.
func (c *Client) adopt(rec *api.Record) (*File, error) {
	f, err := c.newFileFromRecord(rec)
	if err != nil {
		return nil, err
	}

	return c.session.adopt(f), nil
}
