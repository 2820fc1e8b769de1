package gdrive

import (
	"fmt"
	"strings"
)

// SortKey is a server-side ordering key for listings.
// See the Drive API files.list orderBy parameter for the full set.
type SortKey string

const (
	SortByName         SortKey = "name"
	SortByCreatedTime  SortKey = "createdTime"
	SortByModifiedTime SortKey = "modifiedTime"
	SortByFolder       SortKey = "folder"
	SortByStarred      SortKey = "starred"
	SortByRecency      SortKey = "recency"
)

// escapeQueryValue escapes a string for embedding in single quotes inside a
// Drive search expression. Backslashes first, then quotes.
func escapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}

// childrenQuery matches the live (non-trashed) children of a folder.
func childrenQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryValue(folderID))
}

// trashedChildrenQuery matches the trashed children of a folder.
func trashedChildrenQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = true", escapeQueryValue(folderID))
}

// withExactTitle narrows an existing query expression to an exact name match.
func withExactTitle(query, title string) string {
	return fmt.Sprintf("%s and name = '%s'", query, escapeQueryValue(title))
}

// Find describes a metadata search. Zero-value fields are left out of the
// query. This is the closed, statically checkable alternative to free-form
// query strings for the common lookups.
type Find struct {
	Title       string // exact match unless Approximate
	Approximate bool   // title contains-match
	ParentID    string
	MimeType    string
}

// query renders the search expression. foldersOnly restricts the MIME
// discriminator; it wins over an explicit MimeType.
func (f Find) query(foldersOnly, filesOnly bool) string {
	var terms []string

	switch {
	case foldersOnly:
		terms = append(terms, fmt.Sprintf("mimeType = '%s'", MimeFolder))
	case filesOnly:
		terms = append(terms, fmt.Sprintf("mimeType != '%s'", MimeFolder))
	}

	if f.Title != "" && f.Approximate {
		terms = append(terms, fmt.Sprintf("name contains '%s'", escapeQueryValue(f.Title)))
	}

	if f.Title != "" && !f.Approximate {
		terms = append(terms, fmt.Sprintf("name = '%s'", escapeQueryValue(f.Title)))
	}

	if f.MimeType != "" && !foldersOnly && !filesOnly {
		terms = append(terms, fmt.Sprintf("mimeType = '%s'", escapeQueryValue(f.MimeType)))
	}

	if f.ParentID != "" {
		terms = append(terms, fmt.Sprintf("'%s' in parents", escapeQueryValue(f.ParentID)))
	}

	terms = append(terms, "trashed = false")

	return strings.Join(terms, " and ")
}
