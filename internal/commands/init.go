package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/config"
	"github.com/finch-money/finch/internal/testdata"
)

const sampleProfile = `# Example import profile. One file per bank export format.
name = "sample"
account = "Sample Checking"
delimiter = ","
has_header = true
date_format = "2006-01-02"
date_col = 0
desc_col = 1
amount_col = 2
`

func newInitCommand() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config, profile directory and database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Import.ProfilesDir, 0o755); err != nil {
				return fmt.Errorf("mkdir profiles dir: %w", err)
			}
			samplePath := filepath.Join(cfg.Import.ProfilesDir, "sample.toml")
			if _, err := os.Stat(samplePath); os.IsNotExist(err) {
				if err := os.WriteFile(samplePath, []byte(sampleProfile), 0o644); err != nil {
					return fmt.Errorf("write sample profile: %w", err)
				}
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if seed {
				if err := testdata.Seed(cmd.Context(), testdata.Repos{
					Categories: a.cats,
					Rules:      a.rules,
				}); err != nil {
					return fmt.Errorf("seed defaults: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized: db %s, profiles %s\n",
				cfg.Database.Path, cfg.Import.ProfilesDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", true, "seed default categories and starter rules")
	return cmd
}
