package gdrive

import (
	"context"
	"errors"
	"path"
)

// SkipDir is returned by a WalkFunc to skip descending into a folder.
var SkipDir = errors.New("gdrive: skip this directory")

// WalkFunc is called once per visited file. drivePath is the slash-joined
// title path from the walk root. Returning SkipDir on a folder prunes its
// subtree; any other error aborts the walk.
type WalkFunc func(drivePath string, f *File) error

// Walk traverses the folder tree rooted at folder depth-first, visiting
// each non-trashed file exactly once. Siblings are visited in server order.
// The root folder itself is not visited.
func (c *Client) Walk(ctx context.Context, folder *File, fn WalkFunc) error {
	if !folder.IsFolder() {
		return &CapabilityError{Op: "walk", Kind: folder.kind}
	}

	return c.walk(ctx, folder, "", fn)
}

func (c *Client) walk(ctx context.Context, folder *File, prefix string, fn WalkFunc) error {
	children, err := folder.Children()
	if err != nil {
		return err
	}

	entries, err := children.All(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		entryPath := path.Join(prefix, entry.title)

		err := fn(entryPath, entry)
		if err != nil {
			if entry.IsFolder() && errors.Is(err, SkipDir) {
				continue
			}

			return err
		}

		if entry.IsFolder() {
			if err := c.walk(ctx, entry, entryPath, fn); err != nil {
				return err
			}
		}
	}

	return nil
}
