package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"crmgrip/internal/config"
	"crmgrip/internal/domain"
	"crmgrip/internal/logic"
	"crmgrip/internal/ui/coordinator"
	"crmgrip/internal/ui/services/actionbar"
	"crmgrip/internal/ui/services/selection"
)

const (
	stormsFlagName      = "storms"
	burstFlagName       = "burst"
	subscribersFlagName = "subscribers"
	stallFlagName       = "stall"
	failingFlagName     = "failing"
	metricsFlagName     = "metrics"
)

// simulateOptions shapes one headless run
type simulateOptions struct {
	Storms      int
	Burst       int
	Subscribers int
	Stall       time.Duration // one extra subscriber sleeps this long; 0 disables it
	Failing     bool
	Metrics     bool
}

// simulationReport is what a run measured
type simulationReport struct {
	Storms      int
	Emitted     int
	Accepted    uint64
	Dispatched  uint64
	Suppressed  uint64
	Requests    uint64
	Passes      uint64
	TimedOut    uint64
	Failed      uint64
	MaxPass     time.Duration
	Toasts      []string
	Selected    int
	Projection  actionbar.Projection
	SelectAll   []selection.Action
	Prometheus  map[string]float64
	RenderCalls int
}

func newSimulateCmd(a *app) *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive mutation storms through the core and report the statistics",
		Long: `Run a headless scenario against the coordination core.

Each storm emits a burst of data changed signals. The bus dispatches them,
the render guard coalesces them into passes, and a subscriber that emits
while a pass is running shows the re-entrancy guard at work. A select-all
round over the sample contacts then exercises the selection store and the
action bar projection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := runSimulation(cmd.Context(), a.cfg, opts, slog.Default())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderReport(report, opts.Metrics))
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Storms, stormsFlagName, 5, "number of mutation storms")
	cmd.Flags().IntVar(&opts.Burst, burstFlagName, 20, "signals emitted per storm")
	cmd.Flags().IntVar(&opts.Subscribers, subscribersFlagName, 3, "well-behaved render subscribers")
	cmd.Flags().DurationVar(&opts.Stall, stallFlagName, 0, "add a subscriber that stalls for this long")
	cmd.Flags().BoolVar(&opts.Failing, failingFlagName, false, "add a subscriber that always fails")
	cmd.Flags().BoolVar(&opts.Metrics, metricsFlagName, false, "print the Prometheus collectors as well")
	return cmd
}

// toastLog collects toasts; Notify may run on the debounce timer goroutine
type toastLog struct {
	mu       sync.Mutex
	messages []string
}

func (t *toastLog) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

func (t *toastLog) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// runSimulation executes the scenario and collects the report
func runSimulation(ctx context.Context, cfg *config.Config, opts simulateOptions, logger *slog.Logger) (*simulationReport, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Storms < 1 || opts.Burst < 1 {
		return nil, errors.New("storms and burst must be positive")
	}

	completed := make(chan uint64, opts.Storms*4+4)
	toasts := &toastLog{}
	reg := prometheus.NewRegistry()
	core := newCore(cfg, reg, coordinator.Options{
		Logger:   logger,
		Notifier: toasts,
		Events: func(ev domain.DomainEvent) {
			if rc, ok := ev.(domain.RenderCompletedEvent); ok {
				select {
				case completed <- rc.Pass:
				default:
				}
			}
		},
	})
	defer core.Close()

	report := &simulationReport{Storms: opts.Storms}
	var calls atomic.Int64
	for i := range opts.Subscribers {
		core.SubscribeRender("sim:list-"+strconv.Itoa(i), func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}
	// Emitting from inside a pass must never start another one
	core.SubscribeRender("sim:reentrant", func(context.Context) error {
		core.EmitDataChanged(domain.DataChanged{Scope: domain.ScopeContacts, Source: "sim:reentrant"})
		return nil
	})
	if opts.Stall > 0 {
		core.SubscribeRender("sim:stalled", func(ctx context.Context) error {
			select {
			case <-time.After(opts.Stall):
			case <-ctx.Done():
			}
			return nil
		})
	}
	if opts.Failing {
		core.SubscribeRender("sim:failing", func(context.Context) error {
			return errors.New("subscriber failed")
		})
	}

	wait := cfg.Render.Timeout + cfg.Render.FrameInterval + cfg.Bus.Debounce + time.Second
	for storm := range opts.Storms {
		for i := range opts.Burst {
			detail := domain.DataChanged{Scope: domain.ScopeContacts, Source: "sim:edit", Count: 1}
			if storm == opts.Storms-1 && i == opts.Burst-1 {
				detail.Source = domain.SourceSoftDelete
			}
			core.EmitDataChanged(detail)
			report.Emitted++
		}
		if err := awaitSettled(ctx, core, completed, wait); err != nil {
			return nil, fmt.Errorf("storm %d: %w", storm+1, err)
		}
		if d := core.Guard.Stats().LastDuration; d > report.MaxPass {
			report.MaxPass = d
		}
	}

	if err := selectAllRound(core, report); err != nil {
		return nil, err
	}

	stats := core.Guard.Stats()
	meter := core.Bus.Meter()
	report.Accepted = meter.Count
	report.Dispatched = meter.Dispatched
	report.Suppressed = meter.Suppressed
	report.Requests = stats.Requests
	report.Passes = stats.Passes
	report.TimedOut = stats.TimedOut
	report.Failed = stats.Failed
	report.Toasts = toasts.all()
	report.RenderCalls = int(calls.Load())

	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	report.Prometheus = make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				report.Prometheus[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				report.Prometheus[name] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				report.Prometheus[name+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return report, nil
}

// awaitSettled blocks until a pass completed and no further pass is armed
func awaitSettled(ctx context.Context, core *coordinator.Core, completed <-chan uint64, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-completed:
			if core.Guard.Scheduled() {
				continue
			}
			// Hooks run before the pass leaves the guard
			for core.IsRendering() {
				time.Sleep(time.Millisecond)
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("no render pass within %s", wait)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// selectAllRound clicks the header checkbox over the sample contacts
func selectAllRound(core *coordinator.Core, report *simulationReport) error {
	records := logic.NewMemoryRecordStore()
	if _, err := logic.LoadRecords(records, ""); err != nil {
		return err
	}
	bar := actionbar.NewNode()
	core.AttachActionBar(bar)
	core.Navigate(domain.ScopeContacts)

	rows := records.GetRecords(domain.ScopeContacts)
	entries := make([]selection.VisibleRowEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, selection.VisibleRowEntry{ID: r.ID, Disabled: r.Disabled, Visible: true})
	}

	header := &selection.CheckboxState{}
	// Partial selection upgrades, a full one clears, and the third click
	// leaves every enabled row selected
	core.Selection.Toggle(entries[0].ID, domain.ScopeContacts)
	for range 3 {
		out := core.ApplySelectAll(header, domain.ScopeContacts, entries)
		report.SelectAll = append(report.SelectAll, out.Action)
	}

	report.Selected = core.Selection.Count(domain.ScopeContacts)
	report.Projection = core.Projection(domain.ScopeContacts)
	if bar.Visible() != report.Projection.Visible {
		return errors.New("action bar out of sync with the selection")
	}
	return nil
}

func renderReport(r *simulationReport, withMetrics bool) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	actions := make([]string, 0, len(r.SelectAll))
	for _, a := range r.SelectAll {
		actions = append(actions, a.String())
	}

	rows := [][]string{
		{"storms", strconv.Itoa(r.Storms)},
		{"signals emitted", strconv.Itoa(r.Emitted)},
		{"signals accepted", strconv.FormatUint(r.Accepted, 10)},
		{"dispatches", strconv.FormatUint(r.Dispatched, 10)},
		{"suppressed during render", strconv.FormatUint(r.Suppressed, 10)},
		{"render requests", strconv.FormatUint(r.Requests, 10)},
		{"render passes", strconv.FormatUint(r.Passes, 10)},
		{"subscriber calls", strconv.Itoa(r.RenderCalls)},
		{"subscriber timeouts", strconv.FormatUint(r.TimedOut, 10)},
		{"subscriber failures", strconv.FormatUint(r.Failed, 10)},
		{"slowest pass", r.MaxPass.Round(time.Microsecond).String()},
		{"notifications", strconv.Itoa(len(r.Toasts))},
		{"select-all actions", fmt.Sprint(actions)},
		{"selected contacts", strconv.Itoa(r.Selected)},
		{"action bar", barState(r.Projection)},
	}
	table.AppendBulk(rows)
	table.SetFooter([]string{"render coalescing", coalescing(r)})
	table.Render()

	if withMetrics && len(r.Prometheus) > 0 {
		tableBuffer.WriteString("\n")
		names := make([]string, 0, len(r.Prometheus))
		for name := range r.Prometheus {
			names = append(names, name)
		}
		sort.Strings(names)

		mt := tablewriter.NewWriter(&tableBuffer)
		mt.SetHeader([]string{"Collector", "Value"})
		mt.SetBorder(false)
		mt.SetCenterSeparator("")
		mt.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
		for _, name := range names {
			mt.Append([]string{name, strconv.FormatFloat(r.Prometheus[name], 'f', -1, 64)})
		}
		mt.Render()
	}

	return tableBuffer.String()
}

func barState(p actionbar.Projection) string {
	if !p.Visible {
		return "hidden"
	}
	s := fmt.Sprintf("visible (%d)", p.Count)
	if p.MergeReady {
		s += " merge-ready"
	}
	return s
}

func coalescing(r *simulationReport) string {
	if r.Passes == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f signals/pass", float64(r.Accepted)/float64(r.Passes))
}
