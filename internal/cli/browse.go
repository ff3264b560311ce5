package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"crmgrip/internal/config"
	"crmgrip/internal/logic"
	"crmgrip/internal/metrics"
	"crmgrip/internal/ui"
	"crmgrip/internal/ui/coordinator"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive list views",
		Long: `Open the interactive list views.

Space toggles a row, a selects or clears every visible row, d deletes the
selection, tab switches view and ? opens the help pager.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.browse(cmd)
		},
	}
}

// newCore builds the coordination core from cfg
func newCore(cfg *config.Config, reg prometheus.Registerer, opts coordinator.Options) *coordinator.Core {
	opts.RenderTimeout = cfg.Render.Timeout
	opts.FrameInterval = cfg.Render.FrameInterval
	opts.Debounce = cfg.Bus.Debounce
	opts.Metrics = metrics.New(reg)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return coordinator.New(opts)
}

func (a *app) browse(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	records := logic.NewMemoryRecordStore()
	n, err := logic.LoadRecords(records, a.cfg.UI.RowsFile)
	if err != nil {
		return err
	}
	slog.Info("loaded records", "count", n, "file", a.cfg.UI.RowsFile)

	bridge := ui.NewProgramBridge()
	core := newCore(a.cfg, prometheus.NewRegistry(), coordinator.Options{
		Notifier: bridge,
		Events:   bridge.Publish,
	})
	defer core.Close()

	model := ui.NewModel(core, records, a.cfg)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)
	bridge.SetProgram(p)

	slog.Info("starting UI")
	if _, err := p.Run(); err != nil {
		if !errors.Is(err, tea.ErrProgramKilled) || ctx.Err() == nil {
			return fmt.Errorf("error running program: %w", err)
		}
		slog.Info("UI interrupted", "cause", context.Cause(ctx))
	}

	stats := core.Guard.Stats()
	meter := core.Bus.Meter()
	slog.Info("UI exited normally",
		"passes", stats.Passes,
		"timeouts", stats.TimedOut,
		"signals", meter.Count,
		"suppressed", meter.Suppressed)
	return nil
}
