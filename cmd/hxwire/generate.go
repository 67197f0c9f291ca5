package main

import (
	"github.com/spf13/cobra"

	"github.com/pthm/hxwire/lib/generator"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var opts generator.Options

	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Generate Actions() for components",
		Long: `Generate an Actions() method for every component embedding hxwire.Base
whose methods carry a //hxwire:action directive. Output goes to <file>_hx.go
next to the declaring file.

Examples:
  hxwire generate ./...
  hxwire generate ./components/board
  hxwire generate --dry-run ./...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generator.New(opts).Generate(patterns(args)...)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be generated without writing files")

	return cmd
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var opts generator.Options

	cmd := &cobra.Command{
		Use:   "clean [packages]",
		Short: "Remove generated files (*_hx.go)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generator.New(opts).Clean(patterns(args)...)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be removed without deleting files")

	return cmd
}

func patterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}
