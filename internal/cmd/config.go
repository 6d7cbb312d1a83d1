package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/config"
	"github.com/felixgeelhaar/wavekeeper/internal/tui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd(), newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "yaml" && format != "json" {
				return &usageError{err: fmt.Errorf("unknown format: %s (supported: yaml, json)", format), usage: cmd.UsageString()}
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cc.LoadConfig()
			if err != nil {
				return err
			}
			f, err := cc.Formatter(cmd, format)
			if err != nil {
				return err
			}
			return f.Format(cfg.Redacted())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cc.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := cfg.File
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(out, "configuration OK (%s, digest %s)\n", source, cfg.ShortDigest())
			for _, key := range cfg.PolicyDefaults {
				fmt.Fprintf(out, "  %s not set, using default\n", key)
			}
			if !cfg.Sheets.Enabled() {
				fmt.Fprintf(out, "  sheets disabled, runs use the default run configuration\n")
			}
			if !cfg.Mailgun.Enabled() {
				fmt.Fprintf(out, "  mail disabled\n")
			}
			return nil
		},
	}
}


func newConfigInitCmd() *cobra.Command {
	var (
		output   string
		force    bool
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Ask for the runtime, spreadsheet, mail and burn policy settings and write
them to a configuration file. Secrets are not asked for; keep them in .env.

Without a terminal, or with --defaults, the defaults are written as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if !defaults {
				if !tui.ShouldPrompt() {
					return &usageError{err: fmt.Errorf("not a terminal; pass --defaults to write the defaults"), usage: cmd.UsageString()}
				}
				answers := tui.AnswersFrom(cfg)
				if err := tui.RunSetup(answers); err != nil {
					return err
				}
				if err := answers.Apply(cfg); err != nil {
					return err
				}
			}
			if err := cfg.WriteFile(output, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultFile, "file to write")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the defaults without prompting")
	return cmd
}
