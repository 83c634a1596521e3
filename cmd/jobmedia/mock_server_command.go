package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobmedia/internal/mockremote"
	"jobmedia/internal/remote"
)

var defaultMockJobCodes = []string{"DEMO-100=Demo Warehouse", "DEMO-200=Demo Retail Fitout"}

func newMockServerCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var codes []string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory job-media backend for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) == "" {
				bind = cfg.MockServer.Bind
			}
			seed, err := parseJobCodeFlags(codes)
			if err != nil {
				return err
			}
			server := mockremote.New(mockremote.WithLogger(logger), mockremote.WithJobCodes(seed...))

			ready := make(chan string, 1)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Serve(cmd.Context(), bind, ready) }()
			select {
			case addr := <-ready:
				fmt.Fprintf(cmd.OutOrStdout(), "Mock backend listening on http://%s (Ctrl+C to stop)\n", addr)
			case err := <-errCh:
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to mock_server.bind)")
	cmd.Flags().StringArrayVar(&codes, "job-code", defaultMockJobCodes, "Seed job code as CODE=Name (repeatable)")
	return cmd
}

func parseJobCodeFlags(values []string) ([]remote.JobCode, error) {
	codes := make([]remote.JobCode, 0, len(values))
	for _, value := range values {
		code, name, ok := strings.Cut(value, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid --job-code %q (want CODE=Name)", value)
		}
		codes = append(codes, remote.JobCode{Code: code, Name: strings.TrimSpace(name)})
	}
	return codes, nil
}
