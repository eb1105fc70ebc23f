package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// syncctl is the operator's CLI: trigger mutation imports, inspect runs
// and seed ledger-to-account mappings, all through the API.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cliConfig struct {
	apiURL string
	token  string
}

func newRootCmd() *cobra.Command {
	cfg := &cliConfig{}

	root := &cobra.Command{
		Use:          "syncctl",
		Short:        "Operate the bookkeeping mutation import",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.apiURL, "api", envOr("VERENIGINGEN_API", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&cfg.token, "token", os.Getenv("VERENIGINGEN_TOKEN"), "staff JWT")

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newStatusCmd(cfg))
	root.AddCommand(newMappingsCmd(cfg))
	return root
}

func newRunCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Trigger an import sweep and wait for it to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/imports", nil)
		},
	}
}

func newStatusCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show the latest import run, or one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/imports/latest"
			if len(args) == 1 {
				if _, err := uuid.Parse(args[0]); err != nil {
					return fmt.Errorf("run-id must be a uuid: %w", err)
				}
				path = "/api/v1/imports/" + args[0]
			}
			return cfg.call(cmd.OutOrStdout(), http.MethodGet, path, nil)
		},
	}
}

func newMappingsCmd(cfg *cliConfig) *cobra.Command {
	mappings := &cobra.Command{
		Use:   "mappings",
		Short: "Manage ledger-to-account mappings",
	}

	mappings.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the configured mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/ledger-mappings", nil)
		},
	})

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Upsert mappings from a JSON file",
		Long: `Reads a JSON array of mappings and upserts each one:

  [{"ledger_id": 13, "ledger_code": "10440", "ledger_name": "Triodos", "account_code": "10440"}]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			var entries []json.RawMessage
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			for i, entry := range entries {
				if err := cfg.call(cmd.OutOrStdout(), http.MethodPut, "/api/v1/ledger-mappings", entry); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d mappings\n", len(entries))
			return nil
		},
	}
	seed.Flags().StringVarP(&file, "file", "f", "", "mappings JSON file")
	_ = seed.MarkFlagRequired("file")
	mappings.AddCommand(seed)

	return mappings
}

// call performs one API request and pretty-prints the JSON response.
func (c *cliConfig) call(out io.Writer, method, path string, body []byte) error {
	if c.token == "" {
		return fmt.Errorf("no token: set --token or VERENIGINGEN_TOKEN")
	}

	req, err := http.NewRequest(method, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Write(raw)
	}
	fmt.Fprintln(out, pretty.String())

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
