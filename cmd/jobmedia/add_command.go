package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobmedia/internal/config"
	"jobmedia/internal/imagestore"
	"jobmedia/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var camera bool

	cmd := &cobra.Command{
		Use:   "add <image>...",
		Short: "Copy images into the upload queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.library()
			if err != nil {
				return err
			}
			source := imagestore.SourceLibrary
			if camera {
				source = imagestore.SourceCamera
			}
			return ctx.withLockedStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					managed, err := library.Import(path, source)
					if err != nil {
						return fmt.Errorf("import %s: %w", arg, err)
					}
					image, err := store.Add(cmd.Context(), managed)
					if err != nil {
						_ = library.Delete(managed)
						return fmt.Errorf("queue %s: %w", arg, err)
					}
					fmt.Fprintf(out, "Queued %s (%s)\n", arg, shortID(image.ID))
				}
				count, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d image(s) waiting for upload\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&camera, "camera", false, "Mark images as camera captures")
	return cmd
}
