// Package cli provides the root command and CLI setup for crmgrip.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"crmgrip/internal/config"
)

const (
	configFlagName        = "config"
	debugFlagName         = "debug"
	logFileFlagName       = "log-file"
	rowsFlagName          = "rows"
	renderTimeoutFlagName = "render-timeout"
	frameIntervalFlagName = "frame-interval"
	debounceFlagName      = "debounce"
)

const rootLongDescription = `crmgrip browses CRM list views (contacts, partners, pipeline) in the
terminal. Rows can be multi-selected per view; a bulk-action bar follows the
selection and every data mutation schedules one coalesced, time-bounded
render pass.

Configuration is read from .crmgrip.toml in the working directory or the
user config directory, then CRMGRIP_* environment variables, then flags.`

// app is the state shared by every command of one root
type app struct {
	v          *viper.Viper
	svc        config.ConfigService
	cfg        *config.Config
	configPath string
}

func newApp() *app {
	v := viper.New()
	return &app{v: v, svc: config.NewConfigService(v)}
}

func newRootCmd() *cobra.Command {
	a := newApp()
	cmd := &cobra.Command{
		Use:           "crmgrip",
		Short:         "Terminal CRM list views with coordinated selection and rendering",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.browse(cmd)
		},
	}
	a.configureRootFlags(cmd)

	cmd.AddCommand(
		newBrowseCmd(a),
		newSimulateCmd(a),
		newConfigCmd(a),
		newHelpPagerCmd(),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) configureRootFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVarP(&a.configPath, configFlagName, "c", "", "config file (default: ./"+config.FileName+")")

	flags.Bool(debugFlagName, d.Debug, "log at debug level")
	bindFlagToConfig(a.v, flags.Lookup(debugFlagName), config.KeyDebug)

	flags.String(logFileFlagName, "", "log file (default: "+d.Log.Filename+")")
	bindFlagToConfig(a.v, flags.Lookup(logFileFlagName), config.KeyLogFilename)

	flags.StringP(rowsFlagName, "r", "", "YAML file with the rows to show (default: built-in sample)")
	bindFlagToConfig(a.v, flags.Lookup(rowsFlagName), config.KeyRowsFile)

	flags.Duration(renderTimeoutFlagName, d.Render.Timeout, "per-subscriber render timeout")
	bindFlagToConfig(a.v, flags.Lookup(renderTimeoutFlagName), config.KeyRenderTimeout)

	flags.Duration(frameIntervalFlagName, d.Render.FrameInterval, "delay before a requested render pass runs")
	bindFlagToConfig(a.v, flags.Lookup(frameIntervalFlagName), config.KeyFrameInterval)

	flags.Duration(debounceFlagName, d.Bus.Debounce, "merge data changed signals inside this window (0 dispatches at once)")
	bindFlagToConfig(a.v, flags.Lookup(debounceFlagName), config.KeyDebounce)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(v *viper.Viper, flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(v.BindPFlag(key, flag))
}

// load reads the configuration and sets up logging
func (a *app) load() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = a.svc.LoadFromPath(a.configPath)
	} else {
		cfg, err = a.svc.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg
	configureLogger(cfg, "")
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
