package cli

import (
	"github.com/spf13/cobra"

	"github.com/sourcli/ssm/internal/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration ssm would run with after merging defaults, the
config file, SSM_* environment variables and flags. The output is a valid
config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
