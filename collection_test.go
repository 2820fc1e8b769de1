package gdrive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpela/gdrive-go/internal/api"
)

// threeChildrenFolder scripts a folder whose listing spans two pages:
// two entries on the first, one on the second.
func threeChildrenFolder(t *testing.T) (*Client, *fakeGateway, *File) {
	t.Helper()

	client, gw := newTestClient(t)
	gw.addRecord(folderRec("folder-1", "Docs", "root-id"))
	gw.setPages(childrenQuery("folder-1"),
		[]api.Record{
			fileRec("file-a", "alpha.txt", "folder-1"),
			fileRec("file-b", "beta.txt", "folder-1"),
		},
		[]api.Record{
			fileRec("file-c", "gamma.txt", "folder-1"),
		},
	)

	folder, err := client.FileByID(context.Background(), "folder-1")
	require.NoError(t, err)

	return client, gw, folder
}

func TestCollection_LazyFirstAccess(t *testing.T) {
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	// Creating the listing costs nothing.
	assert.Equal(t, 0, gw.listCalls)
	assert.False(t, children.FullyLoaded())
}

func TestCollection_NextPagesOnDemand(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	first, err := children.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha.txt", first.Title())
	assert.Equal(t, 1, gw.listCalls)

	second, err := children.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "beta.txt", second.Title())
	// Still inside the first page.
	assert.Equal(t, 1, gw.listCalls)

	third, err := children.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gamma.txt", third.Title())
	assert.Equal(t, 2, gw.listCalls)
}

func TestCollection_NextEndOfListRestarts(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	for range 3 {
		_, err := children.Next(ctx)
		require.NoError(t, err)
	}

	_, err = children.Next(ctx)
	assert.ErrorIs(t, err, ErrEndOfList)

	// Cursor reset: the next call starts over without refetching.
	callsBefore := gw.listCalls

	again, err := children.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha.txt", again.Title())
	assert.Equal(t, callsBefore, gw.listCalls)
}

func TestCollection_NextEmptyPageEndsPass(t *testing.T) {
	ctx := context.Background()
	client, gw := newTestClient(t)
	gw.addRecord(folderRec("folder-1", "Docs", "root-id"))
	gw.setPages(childrenQuery("folder-1"),
		[]api.Record{},
		[]api.Record{fileRec("file-a", "alpha.txt", "folder-1")},
	)

	folder := loadFile(t, client, "folder-1")

	children, err := folder.Children()
	require.NoError(t, err)

	// An empty page ends the pass even though a continuation token remains:
	// exactly one fetch, no paging through to the next page.
	_, err = children.Next(ctx)
	assert.ErrorIs(t, err, ErrEndOfList)
	assert.Equal(t, 1, gw.listCalls)
	assert.False(t, children.FullyLoaded())

	// The following pass resumes from the stored token.
	f, err := children.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha.txt", f.Title())
	assert.Equal(t, 2, gw.listCalls)
}

func TestCollection_AllPreservesServerOrder(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	all, err := children.All(ctx)
	require.NoError(t, err)

	require.Len(t, all, 3)
	assert.Equal(t, "alpha.txt", all[0].Title())
	assert.Equal(t, "beta.txt", all[1].Title())
	assert.Equal(t, "gamma.txt", all[2].Title())
	assert.True(t, children.FullyLoaded())

	// Idempotent: a second All costs nothing.
	callsBefore := gw.listCalls

	_, err = children.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, callsBefore, gw.listCalls)
}

func TestCollection_CountForcesFullMaterialization(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	n, err := children.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, gw.listCalls)
	assert.True(t, children.FullyLoaded())
}

func TestCollection_ByNameMaterializedFastPath(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	callsBefore := gw.listCalls

	hit, err := children.ByName(ctx, "beta.txt")
	require.NoError(t, err)
	assert.Equal(t, "file-b", hit.ID())

	// Materialized hit costs no remote call.
	assert.Equal(t, callsBefore, gw.listCalls)
}

func TestCollection_ByNameNarrowedQuery(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	narrowed := withExactTitle(childrenQuery("folder-1"), "gamma.txt")
	gw.setPages(narrowed, []api.Record{fileRec("file-c", "gamma.txt", "folder-1")})

	children, err := folder.Children()
	require.NoError(t, err)

	hit, err := children.ByName(ctx, "gamma.txt")
	require.NoError(t, err)
	assert.Equal(t, "file-c", hit.ID())

	// Exactly one narrowed query, and nothing was paged in.
	assert.Equal(t, 1, gw.listCalls)
	assert.Equal(t, []string{narrowed}, gw.listQueries)
	assert.False(t, children.FullyLoaded())
	assert.Empty(t, children.items)
}

func TestCollection_ByNameAmbiguousMaterialized(t *testing.T) {
	ctx := context.Background()

	client, gw := newTestClient(t)
	gw.addRecord(folderRec("folder-1", "Docs", "root-id"))
	gw.setPages(childrenQuery("folder-1"), []api.Record{
		fileRec("file-a", "dup.txt", "folder-1"),
		fileRec("file-b", "dup.txt", "folder-1"),
	})

	folder, err := client.FileByID(ctx, "folder-1")
	require.NoError(t, err)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	_, err = children.ByName(ctx, "dup.txt")
	require.Error(t, err)

	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}

func TestCollection_ByNameNotFoundFullyLoaded(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	callsBefore := gw.listCalls

	_, err = children.ByName(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	// Fully loaded listing answers absence locally.
	assert.Equal(t, callsBefore, gw.listCalls)
}

func TestCollection_ByNameUnicodeNormalization(t *testing.T) {
	ctx := context.Background()

	client, gw := newTestClient(t)
	gw.addRecord(folderRec("folder-1", "Docs", "root-id"))
	// "é" as U+00E9 (precomposed) in the listing.
	gw.setPages(childrenQuery("folder-1"), []api.Record{
		fileRec("file-a", "café.txt", "folder-1"),
	})

	folder, err := client.FileByID(ctx, "folder-1")
	require.NoError(t, err)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	// Lookup with "e" + combining acute accent matches after NFC folding.
	hit, err := children.ByName(ctx, "café.txt")
	require.NoError(t, err)
	assert.Equal(t, "file-a", hit.ID())
}

func TestCollection_ExistsFalse(t *testing.T) {
	ctx := context.Background()
	_, _, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	ok, err := children.Exists(ctx, "nope.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = children.Exists(ctx, "alpha.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollection_RefreshResets(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)
	require.True(t, children.FullyLoaded())

	children.Refresh()
	assert.False(t, children.FullyLoaded())

	_, err = children.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, gw.listCalls)
}

func TestCollection_SortByAddsOrderByAndResets(t *testing.T) {
	ctx := context.Background()
	_, gw, folder := threeChildrenFolder(t)

	children, err := folder.Children()
	require.NoError(t, err)

	_, err = children.All(ctx)
	require.NoError(t, err)

	children.SortBy(SortByName, false).SortBy(SortByModifiedTime, true)
	assert.False(t, children.FullyLoaded())
	assert.Equal(t, "name,modifiedTime desc", children.query.OrderBy)

	_, err = children.All(ctx)
	require.NoError(t, err)
	assert.Greater(t, gw.listCalls, 2)
}

func TestCollection_FilesAndFolders(t *testing.T) {
	ctx := context.Background()

	client, gw := newTestClient(t)
	gw.addRecord(folderRec("folder-1", "Docs", "root-id"))
	gw.setPages(childrenQuery("folder-1"), []api.Record{
		fileRec("file-a", "a.txt", "folder-1"),
		folderRec("sub-1", "Sub", "folder-1"),
	})

	folder, err := client.FileByID(ctx, "folder-1")
	require.NoError(t, err)

	children, err := folder.Children()
	require.NoError(t, err)

	files, err := children.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Title())

	folders, err := children.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Sub", folders[0].Title())
}
