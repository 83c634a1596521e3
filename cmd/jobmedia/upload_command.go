package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"jobmedia/internal/logging"
	"jobmedia/internal/queue"
	"jobmedia/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var bestEffort bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload every queued image under the selected job code and file type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.remoteClient()
			if err != nil {
				return err
			}
			library, err := ctx.library()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				reporter := newProgressReporter(cmd.ErrOrStderr(), logger, !jsonOutput && isTerminal(cmd.ErrOrStderr()))
				opts := []upload.SchedulerOption{upload.WithProgress(reporter.update)}
				if bestEffort {
					opts = append(opts, upload.WithBestEffort(true))
				}
				scheduler := upload.New(cfg, client, store, library, logger, opts...)

				batch, result, runErr := scheduler.PrepareAndRun(cmd.Context())
				reporter.finish()
				if batch.ID == "" {
					return runErr
				}

				if jsonOutput {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					printUploadResult(cmd.OutOrStdout(), batch, result)
				}
				if runErr == nil {
					return nil
				}
				if result.Completed == 0 && len(result.Failures) == 0 {
					return runErr
				}
				return fmt.Errorf("upload incomplete: %d of %d image(s) uploaded: %w", result.Completed, result.Total, firstError(runErr))
			})
		},
	}

	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "Keep uploading after a group reports failures")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run result as JSON")
	return cmd
}

func printUploadResult(out io.Writer, batch upload.Batch, result upload.Result) {
	fmt.Fprintf(out, "Uploaded %d of %d image(s) for %s / %s", result.Completed, result.Total,
		batch.Classification.JobCode, batch.Classification.FileType.Label())
	if result.Completed > 0 || len(result.Failures) > 0 {
		fmt.Fprintf(out, " (indices %d-%d)", result.BaseIndex, result.BaseIndex+result.Total-1)
	}
	fmt.Fprintln(out)
	if result.Skipped > 0 {
		fmt.Fprintf(out, "%d image(s) were not attempted and remain queued\n", result.Skipped)
	}
	if len(result.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Failures))
	for _, failure := range result.Failures {
		rows = append(rows, []string{
			strconv.Itoa(failure.Index),
			filepath.Base(failure.LocalRef),
			failure.Step,
			failure.Kind,
			failure.Reason,
		})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Headers: []string{"Index", "File", "Step", "Kind", "Reason"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight},
	}))
	fmt.Fprintln(out, "Failed images stay queued; run 'jobmedia upload' again to retry them.")
}

// firstError unwraps a joined error to its first member.
func firstError(err error) error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return err
}

// progressReporter draws a bar on terminals and logs sampled progress lines
// everywhere else.
type progressReporter struct {
	writer  io.Writer
	logger  *slog.Logger
	useBar  bool
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
}

func newProgressReporter(w io.Writer, logger *slog.Logger, useBar bool) *progressReporter {
	return &progressReporter{
		writer:  w,
		logger:  logging.NewComponentLogger(logger, "upload"),
		useBar:  useBar,
		sampler: logging.NewProgressSampler(25),
	}
}

func (r *progressReporter) update(p upload.Progress) {
	if r.useBar {
		if r.bar == nil {
			r.bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(r.writer),
				progressbar.OptionSetDescription("Uploading"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionFullWidth(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.writer) }),
			)
		}
		_ = r.bar.Set(p.Completed)
		return
	}
	percent := p.Fraction() * 100
	if r.sampler.ShouldLog(percent) {
		r.logger.Info("upload progress",
			logging.Int("completed", p.Completed),
			logging.Int("total", p.Total),
			logging.Float64("percent", percent),
		)
	}
}

func (r *progressReporter) finish() {
	if r.bar != nil && !r.bar.IsFinished() {
		_ = r.bar.Exit()
	}
}
