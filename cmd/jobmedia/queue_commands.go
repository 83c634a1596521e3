package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"jobmedia/internal/imagestore"
	"jobmedia/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

type queueEntry struct {
	ID        string    `json:"id"`
	Position  int64     `json:"position"`
	LocalRef  string    `json:"local_ref"`
	SizeBytes int64     `json:"size_bytes"`
	Missing   bool      `json:"missing,omitempty"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func buildQueueEntries(images []*queue.Image) []queueEntry {
	entries := make([]queueEntry, 0, len(images))
	for _, image := range images {
		entry := queueEntry{
			ID:        image.ID,
			Position:  image.Position,
			LocalRef:  image.LocalRef,
			Attempts:  image.Attempts,
			LastError: image.LastError,
			CreatedAt: image.CreatedAt,
		}
		if info, err := os.Stat(image.LocalRef); err == nil {
			entry.SizeBytes = info.Size()
		} else {
			entry.Missing = true
		}
		entries = append(entries, entry)
	}
	return entries
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued images in upload order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				images, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				entries := buildQueueEntries(images)
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				var total uint64
				rows := make([][]string, 0, len(entries))
				for i, entry := range entries {
					size := humanize.IBytes(uint64(entry.SizeBytes))
					if entry.Missing {
						size = "missing"
					}
					total += uint64(entry.SizeBytes)
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						shortID(entry.ID),
						filepath.Base(entry.LocalRef),
						size,
						humanize.Time(entry.CreatedAt),
						strconv.Itoa(entry.Attempts),
						entry.LastError,
					})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"#", "ID", "File", "Size", "Added", "Attempts", "Last Error"},
					Rows:    rows,
					Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
					Footer:  []string{"", "", fmt.Sprintf("%d image(s)", len(entries)), humanize.IBytes(total)},
				}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove images from the queue and delete their local copies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.library()
			if err != nil {
				return err
			}
			return ctx.withLockedStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					image, err := resolveQueuedImage(cmd.Context(), store, arg)
					if err != nil {
						return err
					}
					if _, err := store.Remove(cmd.Context(), image.ID); err != nil {
						return err
					}
					if err := library.Delete(image.LocalRef); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
					}
					fmt.Fprintf(out, "Removed %s (%s)\n", shortID(image.ID), filepath.Base(image.LocalRef))
				}
				return nil
			})
		},
	}
}

// resolveQueuedImage accepts a full id or a unique prefix of one.
func resolveQueuedImage(ctx context.Context, store *queue.Store, value string) (*queue.Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty id", errNoMatch)
	}
	images, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var match *queue.Image
	for _, image := range images {
		if image.ID == value {
			return image, nil
		}
		if strings.HasPrefix(image.ID, value) {
			if match != nil {
				return nil, fmt.Errorf("id prefix %q is ambiguous", value)
			}
			match = image
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w %q", errNoMatch, value)
	}
	return match, nil
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var deleteFiles bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every image from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var library *imagestore.Library
			if deleteFiles {
				lib, err := ctx.library()
				if err != nil {
					return err
				}
				library = lib
			}
			return ctx.withLockedStore(func(store *queue.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				deleted := 0
				if library != nil {
					for _, image := range removed {
						if err := library.Delete(image.LocalRef); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
							continue
						}
						deleted++
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cleared %d image(s) from the queue\n", len(removed))
				if deleteFiles {
					fmt.Fprintf(out, "Deleted %d local copy(ies)\n", deleted)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete the local image copies")
	return cmd
}
