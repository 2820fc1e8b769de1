package gdrive

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/korpela/gdrive-go/internal/api"
)

// Collection is a lazy view over a server-paginated listing: the children of
// a folder, or the results of a search query. Pages are fetched on demand;
// entries already fetched stay materialized until Refresh.
//
// The materialized buffer is always a strict prefix of the true remote
// result set; once the first page is loaded and the continuation token is
// exhausted, the buffer equals the complete result, frozen until Refresh.
// Server order is preserved — the collection never reorders or deduplicates.
//
// A Collection is not safe for concurrent use: interleaved Next calls from
// multiple goroutines corrupt the cursor.
type Collection struct {
	c     *Client
	query api.ListQuery
	label string // folder title or "" for search results

	pageToken   string
	loadedFirst bool
	items       []*File
	next        int // index of the next item Next returns
}

func newCollection(c *Client, query api.ListQuery, label string) *Collection {
	return &Collection{c: c, query: query, label: label}
}

// FullyLoaded reports whether every remote entry has been materialized.
func (l *Collection) FullyLoaded() bool {
	return l.loadedFirst && l.pageToken == ""
}

// Refresh resets the collection to its initial empty state. Nothing is
// reloaded until the next access.
func (l *Collection) Refresh() {
	l.pageToken = ""
	l.loadedFirst = false
	l.items = nil
	l.next = 0
}

// SortBy appends a server-side ordering key and resets the collection, since
// already-fetched pages no longer reflect the requested order. Chainable.
func (l *Collection) SortBy(key SortKey, desc bool) *Collection {
	clause := string(key)
	if desc {
		clause += " desc"
	}

	if l.query.OrderBy == "" {
		l.query.OrderBy = clause
	} else {
		l.query.OrderBy += "," + clause
	}

	l.Refresh()

	return l
}

// loadNextPage fetches one page and appends its entries to the buffer.
// Entries pass through the session, so an already-known ID materializes as
// the existing instance.
func (l *Collection) loadNextPage(ctx context.Context) error {
	page, err := l.c.gw.List(ctx, l.query, l.pageToken)
	if err != nil {
		return err
	}

	l.pageToken = page.NextPageToken
	l.loadedFirst = true

	for i := range page.Records {
		f, err := l.c.adopt(&page.Records[i])
		if err != nil {
			return err
		}

		l.items = append(l.items, f)
	}

	return nil
}

// Next returns the next entry in server order, fetching at most one page
// when the buffer is exhausted but the listing is not. At the end of a pass
// it returns ErrEndOfList and resets the cursor, so a subsequent call starts
// a fresh traversal without re-fetching pages. A fetched page that turns out
// empty ends the pass even when a continuation token remains; the following
// pass resumes from that token.
func (l *Collection) Next(ctx context.Context) (*File, error) {
	if len(l.items) <= l.next && !l.FullyLoaded() {
		if err := l.loadNextPage(ctx); err != nil {
			return nil, err
		}
	}

	if len(l.items) <= l.next {
		l.next = 0

		return nil, ErrEndOfList
	}

	f := l.items[l.next]
	l.next++

	return f, nil
}

// All eagerly loads every remaining page and returns the complete entry
// sequence in server order. Idempotent: once fully loaded, repeated calls
// return the same entries with no further gateway access.
func (l *Collection) All(ctx context.Context) ([]*File, error) {
	for !l.FullyLoaded() {
		if err := l.loadNextPage(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]*File, len(l.items))
	copy(out, l.items)

	return out, nil
}

// Count returns the total number of entries. It always forces full
// materialization — no server-side count is trusted.
func (l *Collection) Count(ctx context.Context) (int, error) {
	all, err := l.All(ctx)
	if err != nil {
		return 0, err
	}

	return len(all), nil
}

// Files returns the non-folder entries, eagerly loading everything.
func (l *Collection) Files(ctx context.Context) ([]*File, error) {
	return l.filtered(ctx, false)
}

// Folders returns the folder entries, eagerly loading everything.
func (l *Collection) Folders(ctx context.Context) ([]*File, error) {
	return l.filtered(ctx, true)
}

func (l *Collection) filtered(ctx context.Context, folders bool) ([]*File, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []*File

	for _, f := range all {
		if f.IsFolder() == folders {
			out = append(out, f)
		}
	}

	return out, nil
}

// ByName returns the single entry with the given title.
//
// Materialized entries are scanned first — a hit there costs no network
// call. More than one materialized match fails with AmbiguousMatchError
// carrying every candidate. When nothing is materialized and the listing is
// not fully loaded, one narrowed query (original predicate plus an exact
// title filter) is issued instead of paging through the remainder; its
// result is deliberately not added to the buffer, since its position
// relative to unfetched pages is unknown. ErrNotFound when the title does
// not exist.
func (l *Collection) ByName(ctx context.Context, title string) (*File, error) {
	want := norm.NFC.String(title)

	var matches []*File

	for _, f := range l.items {
		if norm.NFC.String(f.title) == want {
			matches = append(matches, f)
		}
	}

	if len(matches) > 1 {
		return nil, &AmbiguousMatchError{Title: title, Matches: matches}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}

	if !l.FullyLoaded() {
		return l.lookupRemote(ctx, title)
	}

	return nil, fmt.Errorf("gdrive: no entry titled %q in %s: %w", title, l.describe(), ErrNotFound)
}

// lookupRemote issues the narrowed exact-title query for ByName.
func (l *Collection) lookupRemote(ctx context.Context, title string) (*File, error) {
	narrowed := l.query
	narrowed.Query = withExactTitle(l.query.Query, title)

	page, err := l.c.gw.List(ctx, narrowed, "")
	if err != nil {
		return nil, err
	}

	if len(page.Records) > 1 {
		matches := make([]*File, 0, len(page.Records))

		for i := range page.Records {
			f, adoptErr := l.c.adopt(&page.Records[i])
			if adoptErr != nil {
				return nil, adoptErr
			}

			matches = append(matches, f)
		}

		return nil, &AmbiguousMatchError{Title: title, Matches: matches}
	}

	if len(page.Records) == 0 {
		return nil, fmt.Errorf("gdrive: no entry titled %q in %s: %w", title, l.describe(), ErrNotFound)
	}

	return l.c.adopt(&page.Records[0])
}

// Exists reports whether an entry with the given title exists.
func (l *Collection) Exists(ctx context.Context, title string) (bool, error) {
	_, err := l.ByName(ctx, title)
	if err == nil {
		return true, nil
	}

	if isNotFound(err) {
		return false, nil
	}

	return false, err
}

func (l *Collection) describe() string {
	if l.label != "" {
		return fmt.Sprintf("folder %q", l.label)
	}

	return fmt.Sprintf("query %q", l.query.Query)
}
