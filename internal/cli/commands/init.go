package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a leapdecide project",
		Long: `Write a leapdecide.yaml with every setting at its default value.

Use --example to also create a policies/ directory with sample HL7
routing policies.`,
		Example: `  # Initialize in current directory
  leapdecide init

  # Initialize with sample policies
  leapdecide init --example

  # Initialize in a new directory
  leapdecide init my-policies --example

  # Force overwrite existing config
  leapdecide init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd), dir, force, example)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create sample policy files")

	return cmd
}

func runInit(cc *CommandContext, dir string, force, example bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	f, err := os.OpenFile(configPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", configPath, err)
	}
	if err := config.WriteSample(f, config.Sample()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cc.Out, "created %s\n", config.ConfigFileName)

	if example {
		if err := copyTemplate("example", dir, force); err != nil {
			return fmt.Errorf("failed to write example policies: %w", err)
		}
		files, _ := listTemplateFiles("example")
		for _, name := range files {
			_, _ = fmt.Fprintf(cc.Out, "created %s\n", name)
		}
	}

	_, _ = fmt.Fprintln(cc.Out)
	_, _ = fmt.Fprintln(cc.Out, "Next steps:")
	if example {
		_, _ = fmt.Fprintln(cc.Out, "  leapdecide inspect policies/hl7_routing.policy")
		_, _ = fmt.Fprintln(cc.Out, "  leapdecide compile policies/*.policy")
	} else {
		_, _ = fmt.Fprintln(cc.Out, "  leapdecide compile <policy file>")
	}
	return nil
}
