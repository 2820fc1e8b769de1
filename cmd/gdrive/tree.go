package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/korpela/gdrive-go"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the folder tree",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTree,
	}

	cmd.Flags().Int("depth", 0, "limit recursion depth (0 = unlimited)")

	return cmd
}

func runTree(cmd *cobra.Command, args []string) error {
	remotePath := "/"
	if len(args) > 0 {
		remotePath = args[0]
	}

	ctx := cmd.Context()

	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}

	folder, err := resolvePath(ctx, client, remotePath)
	if err != nil {
		return err
	}

	maxDepth, _ := cmd.Flags().GetInt("depth")

	fmt.Println(remotePath)

	return client.Walk(ctx, folder, func(drivePath string, f *gdrive.File) error {
		depth := strings.Count(drivePath, "/") + 1

		name := f.Title()
		if f.IsFolder() {
			name += "/"
		}

		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), name)

		if f.IsFolder() && maxDepth > 0 && depth >= maxDepth {
			return gdrive.SkipDir
		}

		return nil
	})
}
