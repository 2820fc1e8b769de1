package main

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/korpela/gdrive-go"
)

// maxParallelDownloads bounds the concurrent transfers when get is given
// several remote paths.
const maxParallelDownloads = 4

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <remote-path>... ",
		Short: "Download files or folders",
		Long: `Download one or more remote paths into the output directory.
Folders are downloaded recursively. Google-native documents (Docs, Sheets)
are exported using the configured export type.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGet,
	}

	cmd.Flags().StringP("output", "o", ".", "local output directory")

	return cmd
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [remote-folder]",
		Short: "Upload a file or directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, logger, err := buildClient(ctx)
	if err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("output")

	// Resolve sequentially so session registration and path walking stay on
	// one goroutine; only the transfers themselves run in parallel.
	targets := make([]*gdrive.File, 0, len(args))
	for _, remotePath := range args {
		f, err := resolvePath(ctx, client, remotePath)
		if err != nil {
			return err
		}

		targets = append(targets, f)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)

	for i, f := range targets {
		remotePath := args[i]

		g.Go(func() error {
			localPath := filepath.Join(outDir, path.Base(cleanRemotePath(remotePath)))

			logger.Debug("downloading", "remote", remotePath, "local", localPath)

			if f.IsFolder() {
				return f.DownloadDir(gctx, localPath)
			}

			if err := f.DownloadFile(gctx, localPath); err != nil {
				return fmt.Errorf("downloading %q: %w", remotePath, err)
			}

			statusf("Downloaded %s\n", remotePath)

			return nil
		})
	}

	return g.Wait()
}

// mimeGuess maps a filename to a bare media type, defaulting to
// octet-stream.
func mimeGuess(name string) string {
	typ := mime.TypeByExtension(filepath.Ext(name))
	if typ == "" {
		return "application/octet-stream"
	}

	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}

	return typ
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, logger, err := buildClient(ctx)
	if err != nil {
		return err
	}

	localPath := args[0]

	remoteFolder := "/"
	if len(args) > 1 {
		remoteFolder = args[1]
	}

	folder, err := resolvePath(ctx, client, remoteFolder)
	if err != nil {
		return err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	logger.Debug("uploading", "local", localPath, "remote", remoteFolder, "dir", info.IsDir())

	if info.IsDir() {
		sub, err := client.FindOrCreateFolder(ctx, folder.ID(), filepath.Base(localPath))
		if err != nil {
			return err
		}

		if err := sub.UploadDir(ctx, localPath); err != nil {
			return err
		}

		statusf("Uploaded directory %s\n", localPath)

		return nil
	}

	// Replace content when a file with the same name already exists.
	name := filepath.Base(localPath)

	existing, err := folder.Child(ctx, name)
	switch {
	case err == nil && existing.Kind() == gdrive.KindFile:
		src, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer src.Close()

		if err := existing.Update(ctx, src, mimeGuess(name)); err != nil {
			return fmt.Errorf("updating %q: %w", name, err)
		}
	case err == nil || notFound(err):
		if _, err := folder.UploadFile(ctx, localPath); err != nil {
			return fmt.Errorf("uploading %q: %w", localPath, err)
		}
	default:
		return err
	}

	statusf("Uploaded %s\n", localPath)

	return nil
}
