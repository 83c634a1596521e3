package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobmedia/internal/jobcodes"
	"jobmedia/internal/media"
	"jobmedia/internal/queue"
)

func newSelectCommand(ctx *commandContext) *cobra.Command {
	selectCmd := &cobra.Command{
		Use:   "select",
		Short: "Choose the job code and file type for the next upload",
	}

	selectCmd.AddCommand(newSelectJobCommand(ctx))
	selectCmd.AddCommand(newSelectTypeCommand(ctx))
	selectCmd.AddCommand(newSelectShowCommand(ctx))
	selectCmd.AddCommand(newSelectClearCommand(ctx))

	return selectCmd
}

func newSelectJobCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "job <code>",
		Short: "Select a job code (clears the file type)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.TrimSpace(args[0])
			if value == "" {
				return fmt.Errorf("job code is required")
			}
			return ctx.withLockedStore(func(store *queue.Store) error {
				catalog, err := ctx.catalog(store)
				if err != nil {
					return err
				}
				code := queue.JobCode{Code: value}
				listing, loadErr := catalog.Load(cmd.Context(), false)
				switch {
				case len(listing.Codes) > 0:
					found, ok := jobcodes.Find(listing.Codes, value)
					if !ok {
						return fmt.Errorf("unknown job code %q (see 'jobmedia jobcodes --search')", value)
					}
					code = found
				case loadErr != nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: job codes unavailable (%v); using %q unverified\n", loadErr, value)
				}
				if err := store.SelectJobCode(cmd.Context(), code.Code); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if code.Name != "" {
					fmt.Fprintf(out, "Selected job %s (%s)\n", code.Code, code.Name)
				} else {
					fmt.Fprintf(out, "Selected job %s\n", code.Code)
				}
				fmt.Fprintln(out, "Choose a file type with 'jobmedia select type'")
				return nil
			})
		},
	}
}

func newSelectTypeCommand(ctx *commandContext) *cobra.Command {
	names := make([]string, 0, len(media.AllFileTypes()))
	for _, ft := range media.AllFileTypes() {
		names = append(names, string(ft))
	}

	return &cobra.Command{
		Use:       "type <file-type>",
		Short:     "Select a file type (" + strings.Join(names, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileType, err := media.ParseFileType(args[0])
			if err != nil {
				return err
			}
			return ctx.withLockedStore(func(store *queue.Store) error {
				selection, err := store.Selection(cmd.Context())
				if err != nil {
					return err
				}
				if selection.JobCode == "" {
					return fmt.Errorf("select a job code first with 'jobmedia select job <code>'")
				}
				if err := store.SelectFileType(cmd.Context(), string(fileType)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected file type %s for job %s\n", fileType.Label(), selection.JobCode)
				return nil
			})
		},
	}
}

type selectionView struct {
	JobCode       string `json:"job_code,omitempty"`
	JobName       string `json:"job_name,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	FileTypeLabel string `json:"file_type_label,omitempty"`
	Queued        int    `json:"queued"`
	Ready         bool   `json:"ready"`
}

func newSelectShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				selection, err := store.Selection(cmd.Context())
				if err != nil {
					return err
				}
				queued, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				view := selectionView{
					JobCode:  selection.JobCode,
					FileType: selection.FileType,
					Queued:   queued,
					Ready:    selection.Complete() && queued > 0,
				}
				if cached, _, err := store.CachedJobCodes(cmd.Context()); err == nil {
					if code, ok := jobcodes.Find(cached, selection.JobCode); ok {
						view.JobName = code.Name
					}
				}
				if ft, err := media.ParseFileType(selection.FileType); err == nil {
					view.FileTypeLabel = ft.Label()
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				job := "not selected"
				jobKind := statusWarn
				if view.JobCode != "" {
					job, jobKind = view.JobCode, statusOK
					if view.JobName != "" {
						job += " (" + view.JobName + ")"
					}
				}
				fileType := "not selected"
				typeKind := statusWarn
				if view.FileTypeLabel != "" {
					fileType, typeKind = view.FileTypeLabel, statusOK
				}
				readyKind := statusWarn
				if view.Ready {
					readyKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Job code", jobKind, job, colorize))
				fmt.Fprintln(out, renderStatusLine("File type", typeKind, fileType, colorize))
				fmt.Fprintln(out, renderStatusLine("Queued", statusInfo, fmt.Sprintf("%d image(s)", view.Queued), colorize))
				fmt.Fprintln(out, renderStatusLine("Ready", readyKind, yesNo(view.Ready), colorize))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSelectClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the job code and file type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedStore(func(store *queue.Store) error {
				if err := store.ClearSelection(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
				return nil
			})
		},
	}
}
