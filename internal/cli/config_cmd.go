package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crmgrip/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigWriteCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigWriteCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "write [path]",
		Short: "Write the effective configuration to a file",
		Long: `Write the effective configuration, including flag and environment
overrides, to path (default: the file it was loaded from, or ./` + config.FileName + `).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.svc.Path()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}
			if err := a.svc.SaveToPath(a.cfg, path); err != nil {
				return err
			}
			cmd.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
