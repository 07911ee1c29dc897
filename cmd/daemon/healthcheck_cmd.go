package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

func newHealthcheckCmd() *cobra.Command {
	var (
		mode    string
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check a running daemon (for container HEALTHCHECK)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/healthz"
			if mode == "ready" {
				path = "/readyz"
			}
			client := http.Client{Timeout: timeout}
			resp, err := client.Get("http://" + addr + path)
			if err != nil {
				return fmt.Errorf("healthcheck failed (network): %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck failed (status): %s", resp.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Healthcheck successful (%s)\n", mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "ready", "healthcheck mode: ready (default) or live")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "API address to check")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "check timeout")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sink state of a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := http.Client{Timeout: timeout}
			resp, err := client.Get("http://" + addr + "/v1/status")
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status: %s", resp.Status)
			}

			var snap model.Snapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "initiated: %t\nrecording: %t\n", snap.Initiated, snap.Active)
			fmt.Fprintf(out, "clients:   %v\n", snap.RegisteredUI)
			fmt.Fprintf(out, "started:   %v\n", snap.StartedProducers)
			fmt.Fprintf(out, "loaded:    %v\n", snap.LoadedProducers)
			fmt.Fprintf(out, "features:  %v\n", snap.EnabledFeatures)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "API address of the daemon")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
