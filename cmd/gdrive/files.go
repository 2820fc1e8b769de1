package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/korpela/gdrive-go"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().Bool("trashed", false, "list trashed contents instead of live ones")

	return cmd
}

func newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <title>",
		Short: "Search files by title across the whole drive",
		Args:  cobra.ExactArgs(1),
		RunE:  runFind,
	}

	cmd.Flags().Bool("exact", false, "match the title exactly instead of as a substring")
	cmd.Flags().Bool("folders", false, "match folders only")

	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display file or folder metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder (recursive)",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <path> <folder-path>",
		Short: "Move a file or folder into another folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Move a file or folder to the trash",
		Long: `Move a file or folder to the Drive trash. Trashed items can be
restored until the trash is emptied.

Use --permanent to bypass the trash and delete immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: runRm,
	}

	cmd.Flags().Bool("permanent", false, "permanently delete instead of trashing")

	return cmd
}

func newTrashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "List the trash",
		RunE:  runTrash,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "empty",
		Short: "Permanently delete everything in the trash",
		RunE:  runEmptyTrash,
	})

	return cmd
}

// cleanRemotePath strips leading/trailing slashes, returns "" for root.
func cleanRemotePath(path string) string {
	return strings.Trim(path, "/")
}

// splitParentAndName splits a remote path into parent path and name.
// For "foo/bar/baz" returns ("foo/bar", "baz").
// For "baz" returns ("", "baz").
func splitParentAndName(path string) (string, string) {
	clean := cleanRemotePath(path)
	idx := strings.LastIndex(clean, "/")

	if idx < 0 {
		return "", clean
	}

	return clean[:idx], clean[idx+1:]
}

// resolvePath resolves a slash-separated title path from the drive root.
// "" and "/" mean the root itself.
func resolvePath(ctx context.Context, client *gdrive.Client, remotePath string) (*gdrive.File, error) {
	root, err := client.Root(ctx)
	if err != nil {
		return nil, err
	}

	clean := cleanRemotePath(remotePath)
	if clean == "" {
		return root, nil
	}

	f, err := client.PathTo(ctx, root, clean)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", remotePath, err)
	}

	return f, nil
}

// lsEntry is the JSON schema for `ls --json` and `find --json`.
type lsEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Starred    bool      `json:"starred,omitempty"`
	Trashed    bool      `json:"trashed,omitempty"`
}

func toEntry(f *gdrive.File) lsEntry {
	return lsEntry{
		ID:         f.ID(),
		Name:       f.Title(),
		Kind:       string(f.Kind()),
		MimeType:   f.MimeType(),
		Size:       f.Size(),
		ModifiedAt: f.ModifiedAt(),
		Starred:    f.Starred(),
		Trashed:    f.Trashed(),
	}
}

func printEntriesJSON(files []*gdrive.File) error {
	entries := make([]lsEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, toEntry(f))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printEntriesTable(files []*gdrive.File) {
	rows := make([][]string, 0, len(files))

	for _, f := range files {
		size := "-"
		if f.Kind() == gdrive.KindFile {
			size = formatSize(f.Size())
		}

		name := f.Title()
		if f.IsFolder() {
			name += "/"
		}

		rows = append(rows, []string{name, string(f.Kind()), size, formatTime(f.ModifiedAt())})
	}

	printTable(os.Stdout, []string{"NAME", "KIND", "SIZE", "MODIFIED"}, rows)
}

func printCollection(ctx context.Context, listing *gdrive.Collection) error {
	files, err := listing.All(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return printEntriesJSON(files)
	}

	printEntriesTable(files)

	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	remotePath := "/"
	if len(args) > 0 {
		remotePath = args[0]
	}

	ctx := cmd.Context()

	client, logger, err := buildClient(ctx)
	if err != nil {
		return err
	}

	logger.Debug("ls", "path", remotePath)

	folder, err := resolvePath(ctx, client, remotePath)
	if err != nil {
		return err
	}

	trashed, _ := cmd.Flags().GetBool("trashed")

	var listing *gdrive.Collection
	if trashed {
		listing, err = folder.TrashedChildren()
	} else {
		listing, err = folder.Children()
	}

	if err != nil {
		return err
	}

	return printCollection(ctx, listing)
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, logger, err := buildClient(ctx)
	if err != nil {
		return err
	}

	exact, _ := cmd.Flags().GetBool("exact")
	foldersOnly, _ := cmd.Flags().GetBool("folders")

	criteria := gdrive.Find{Title: args[0], Approximate: !exact}

	logger.Debug("find", "title", args[0], "exact", exact, "folders", foldersOnly)

	var listing *gdrive.Collection
	if foldersOnly {
		listing = client.FindFolders(criteria)
	} else {
		listing = client.FindFiles(criteria)
	}

	return printCollection(ctx, listing)
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	f, err := resolvePath(ctx, client, args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(toEntry(f))
	}

	fmt.Printf("Name:     %s\n", f.Title())
	fmt.Printf("ID:       %s\n", f.ID())
	fmt.Printf("Kind:     %s\n", f.Kind())
	fmt.Printf("MIME:     %s\n", f.MimeType())

	if f.Kind() == gdrive.KindFile {
		fmt.Printf("Size:     %s\n", formatSize(f.Size()))
	}

	fmt.Printf("Created:  %s\n", f.CreatedAt().Format(time.RFC3339))
	fmt.Printf("Modified: %s\n", f.ModifiedAt().Format(time.RFC3339))

	if locked, reason := f.Locked(); locked {
		fmt.Printf("Locked:   yes (%s)\n", reason)
	}

	if desc := f.Description(); desc != "" {
		fmt.Printf("About:    %s\n", desc)
	}

	if url := f.URL(); url != "" {
		fmt.Printf("URL:      %s\n", url)
	}

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	root, err := client.Root(ctx)
	if err != nil {
		return err
	}

	// Create each path segment that does not exist yet.
	current := root
	for _, part := range strings.Split(cleanRemotePath(args[0]), "/") {
		if part == "" {
			continue
		}

		current, err = client.FindOrCreateFolder(ctx, current.ID(), part)
		if err != nil {
			return fmt.Errorf("creating %q: %w", part, err)
		}
	}

	statusf("Created %s\n", args[0])

	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	src, err := resolvePath(ctx, client, args[0])
	if err != nil {
		return err
	}

	dst, err := resolvePath(ctx, client, args[1])
	if err != nil {
		return err
	}

	if err := src.Move(ctx, dst); err != nil {
		return fmt.Errorf("moving %q: %w", args[0], err)
	}

	statusf("Moved %s to %s\n", args[0], args[1])

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	f, err := resolvePath(ctx, client, args[0])
	if err != nil {
		return err
	}

	permanent, _ := cmd.Flags().GetBool("permanent")
	if permanent {
		if err := f.Delete(ctx); err != nil {
			return fmt.Errorf("deleting %q: %w", args[0], err)
		}

		statusf("Permanently deleted %s\n", args[0])

		return nil
	}

	if err := f.Trash(ctx); err != nil {
		return fmt.Errorf("trashing %q: %w", args[0], err)
	}

	statusf("Moved %s to trash\n", args[0])

	return nil
}

func runTrash(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	return printCollection(ctx, client.Trashed())
}

func runEmptyTrash(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	if err := client.EmptyTrash(ctx); err != nil {
		return err
	}

	statusf("Trash emptied.\n")

	return nil
}

// notFound reports whether err is the library's not-found condition, used
// by put to decide between create and update.
func notFound(err error) bool {
	return errors.Is(err, gdrive.ErrNotFound)
}
