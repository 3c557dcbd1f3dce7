package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentsync/internal/config"
	"contentsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		source instanceFlags
		target instanceFlags
	)

	cmd := &cobra.Command{
		Use:   "check [collection]",
		Short: "Validate tokens and, optionally, collection access on both instances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			collection := ""
			if len(args) == 1 {
				collection = args[0]
			}

			type instanceCheck struct {
				Instance   string            `json:"instance"`
				Token      preflight.Result  `json:"token"`
				Collection *preflight.Result `json:"collection,omitempty"`
			}
			var checks []instanceCheck

			run := func(section string, base config.Instance, overrides instanceFlags) error {
				client, err := ctx.buildClient(section, base, overrides)
				if err != nil {
					return err
				}
				check := instanceCheck{
					Instance: section,
					Token:    preflight.ValidateToken(cmd.Context(), client),
				}
				if collection != "" {
					result := preflight.CheckCollectionAccess(cmd.Context(), client, collection)
					check.Collection = &result
				}
				checks = append(checks, check)
				return nil
			}
			if err := run("source", cfg.Source, source); err != nil {
				return err
			}
			if err := run("target", cfg.Target, target); err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, checks)
			}
			failed := false
			for _, check := range checks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", check.Instance, check.Token.Message)
				if !check.Token.Success {
					failed = true
				}
				if check.Collection != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", check.Instance, check.Collection.Message)
					if !check.Collection.Success {
						failed = true
					}
				}
			}
			if failed {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source.url, "source-url", "", "Source instance base URL (overrides config)")
	cmd.Flags().StringVar(&source.token, "source-token", "", "Source instance token (overrides config)")
	cmd.Flags().StringVar(&target.url, "target-url", "", "Target instance base URL (overrides config)")
	cmd.Flags().StringVar(&target.token, "target-token", "", "Target instance token (overrides config)")

	return cmd
}
