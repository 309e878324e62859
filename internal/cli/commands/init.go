package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	sharedcfg "github.com/leapstack-labs/apalint/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize an apalint project",
		Long: `Initialize a project with a configuration file and a rules directory.

This creates:
  - apalint.yaml with every setting and its default
  - rules/local.rules.yaml with an example project rule
  - .gitignore entry for the augmentation cache`,
		Example: `  # Initialize in current directory
  apalint init

  # Initialize in a new directory
  apalint init tesis-2026

  # Force overwrite existing files
  apalint init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	files, err := copyTemplate("project", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	for _, f := range files {
		r.Success(f)
	}
	r.Println("")
	r.Success("apalint project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Adjust apalint.yaml (variant, augmentation, cache)")
	r.Println("  2. Add institutional rules under rules/")
	r.Println("  3. Run 'apalint doctor' to check the setup")
	r.Println("  4. Run 'apalint lint <document>'")

	return nil
}
