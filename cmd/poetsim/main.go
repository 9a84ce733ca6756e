// Command poetsim is a demo host for github.com/kestrelsys/poetcore/pkg/engine.
// It never touches real hardware or measurement: per spec.md's non-goals the
// engine core receives samples and returns configuration decisions, and it
// is the host's job to actuate and measure. poetsim's "host" is a synthetic
// one: each iteration it reports the speedup/cost of whatever state the
// engine most recently dispatched, plus a little noise, so the control loop
// has something to chase.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kestrelsys/poetcore/pkg/engine"
	"github.com/kestrelsys/poetcore/pkg/states"
	"github.com/kestrelsys/poetcore/pkg/telemetry"
)

type opts struct {
	statesPath  string
	goal        float64
	constraint  string
	period      int
	iterations  int
	interval    time.Duration
	noise       float64
	bufferDepth int
	logFile     string

	csvPath     string
	jsonPath    string
	htmlPath    string
	metricsAddr string
	journalDir  string
}

type row struct {
	Tick       int     `json:"tick"`
	Constraint string  `json:"constraint"`
	Perf       float64 `json:"perf"`
	Power      float64 `json:"power"`
	Speedup    float64 `json:"speedup"`
	Powerup    float64 `json:"powerup"`
	ConfigID   int     `json:"config_id"`
	IdleNs     int64   `json:"idle_ns"`
}

// host simulates the thing the engine thinks it is controlling: a baseline
// rate and baseline power, scaled by whatever state id is currently
// dispatched.
type host struct {
	tbl        states.Table
	baseRate   float64
	basePower  float64
	noise      float64
	rng        *rand.Rand
	dispatched int
	dispatches int
}

func newHost(tbl states.Table, baseRate, basePower, noise float64, seed int64) *host {
	return &host{
		tbl:       tbl,
		baseRate:  baseRate,
		basePower: basePower,
		noise:     noise,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (h *host) measure() (perf, pwr float64) {
	e := h.tbl[h.dispatched]
	jitter := func() float64 { return 1 + h.noise*(h.rng.Float64()*2-1) }
	perf = h.baseRate * e.Speedup * jitter()
	pwr = h.basePower * e.Cost * jitter()
	return perf, pwr
}

func (h *host) apply(_ any, _ int, newID, _ int, idleNs int64, _ bool) {
	h.dispatched = newID
	h.dispatches++
	if idleNs > 0 {
		time.Sleep(time.Duration(idleNs))
	}
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "poetsim",
		Short: "Synthetic driver for the poetcore feedback-control engine",
		Long: `poetsim drives github.com/kestrelsys/poetcore/pkg/engine against a
synthetic host that reports the speedup/cost of whatever control state the
engine most recently dispatched, with optional measurement jitter. It is a
demo harness, not a production reconfiguration agent: no real hardware is
read or actuated.

Examples:
  poetsim --goal 1.5 --constraint performance --period 10 --iterations 200
  poetsim --states states.yaml --goal 5 --constraint power --csv out.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.statesPath, "states", "", "path to a YAML control-state table (default: built-in two-state table)")
	root.Flags().Float64Var(&o.goal, "goal", 1.5, "target rate (performance) or watts (power)")
	root.Flags().StringVar(&o.constraint, "constraint", "performance", "optimization constraint: performance or power")
	root.Flags().IntVar(&o.period, "period", 10, "iterations per control period")
	root.Flags().IntVar(&o.iterations, "iterations", 200, "total iterations to simulate")
	root.Flags().DurationVar(&o.interval, "interval", 0, "artificial delay between iterations (0 = run as fast as possible)")
	root.Flags().Float64Var(&o.noise, "noise", 0.02, "fractional measurement jitter applied to the synthetic host")
	root.Flags().IntVar(&o.bufferDepth, "buffer-depth", 0, "telemetry ring buffer depth (0 disables buffered logging)")
	root.Flags().StringVar(&o.logFile, "log-file", "", "whitespace-aligned telemetry log destination (required if --buffer-depth > 0)")

	root.Flags().StringVar(&o.csvPath, "csv", "", "write per-tick rows to CSV file")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write per-tick rows to JSON file")
	root.Flags().StringVar(&o.htmlPath, "html", "", "write per-tick rows and summary to HTML file")
	root.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	root.Flags().StringVar(&o.journalDir, "journal-dir", "", "persist flushed telemetry batches to a Badger journal at this directory")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	if o.iterations <= 0 {
		return fmt.Errorf("iterations must be > 0")
	}

	constraint, err := parseConstraint(o.constraint)
	if err != nil {
		return err
	}

	tbl := states.DefaultTable()
	if o.statesPath != "" {
		loaded, err := states.LoadTable(o.statesPath)
		if err != nil {
			return fmt.Errorf("load states: %w", err)
		}
		tbl = loaded
	}

	var metrics *telemetry.Metrics
	if o.metricsAddr != "" {
		metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("serving metrics", "addr", o.metricsAddr)
			if err := http.ListenAndServe(o.metricsAddr, mux); err != nil {
				slog.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	var journal *telemetry.Journal
	if o.journalDir != "" {
		j, err := telemetry.OpenJournal(o.journalDir)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		journal = j
		defer journal.Close()
	}

	h := newHost(tbl, 1.0, 1.0, o.noise, 1)

	bufferDepth := o.bufferDepth
	logFile := o.logFile
	if journal != nil && bufferDepth == 0 {
		// A journal needs a buffered sink to attach to; the engine ties
		// buffering to a log file, so give it a small default one.
		bufferDepth = 16
		if logFile == "" {
			logFile = filepath.Join(o.journalDir, "poetsim.telemetry.log")
		}
	}

	cfg := engine.Config{
		Goal:        o.goal,
		Constraint:  constraint,
		States:      tbl,
		ApplyStates: nil,
		Apply:       h.apply,
		Period:      o.period,
		BufferDepth: bufferDepth,
		LogFilename: logFile,
	}
	if journal != nil {
		cfg.TelemetryFlush = journal.FlushFunc()
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printSimHeader(tw)

	var (
		csvW  *csv.Writer
		csvF  *os.File
		jsonF *os.File
		htmlF *os.File
		rows  []row
	)
	if o.csvPath != "" {
		if err := os.MkdirAll(filepath.Dir(o.csvPath), 0o755); err == nil {
			if f, err := os.Create(o.csvPath); err == nil {
				csvF = f
				csvW = csv.NewWriter(f)
				_ = csvW.Write([]string{"tick", "constraint", "perf", "power", "speedup", "powerup", "config_id", "idle_ns"})
				csvW.Flush()
			}
		}
	}
	if o.jsonPath != "" {
		if err := os.MkdirAll(filepath.Dir(o.jsonPath), 0o755); err == nil {
			jsonF, _ = os.Create(o.jsonPath)
			if jsonF != nil {
				_, _ = jsonF.WriteString("[\n")
			}
		}
	}
	if o.htmlPath != "" {
		if err := os.MkdirAll(filepath.Dir(o.htmlPath), 0o755); err == nil {
			htmlF, _ = os.Create(o.htmlPath)
		}
	}

	writeN := 0
	for i := 0; i < o.iterations; i++ {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", i)
			goto END
		default:
		}

		perf, pwr := h.measure()
		dispatchesBefore := h.dispatches
		eng.ApplyControl(i, perf, pwr)

		speedup, powerup := eng.Controllers()
		cost, _ := eng.CostEstimate()
		lowerID, upperID, lowIters, idleNs := eng.Schedule()
		if metrics != nil {
			metrics.DispatchTotal.Add(float64(h.dispatches - dispatchesBefore))
			metrics.Observe(telemetry.Record{
				Speedup:      speedup,
				Powerup:      powerup,
				TimeWorkload: float64(lowIters),
				LowerID:      lowerID,
				UpperID:      upperID,
				IdleNs:       idleNs,
			}, cost)
		}

		r := row{
			Tick:       i,
			Constraint: o.constraint,
			Perf:       perf,
			Power:      pwr,
			Speedup:    speedup,
			Powerup:    powerup,
			ConfigID:   h.dispatched,
			IdleNs:     idleNs,
		}
		printSimRow(tw, r)
		rows = append(rows, r)

		if csvW != nil {
			_ = csvW.Write([]string{
				strconv.Itoa(r.Tick), r.Constraint,
				strconv.FormatFloat(r.Perf, 'f', 4, 64), strconv.FormatFloat(r.Power, 'f', 4, 64),
				strconv.FormatFloat(r.Speedup, 'f', 4, 64), strconv.FormatFloat(r.Powerup, 'f', 4, 64),
				strconv.Itoa(r.ConfigID), strconv.FormatInt(r.IdleNs, 10),
			})
			csvW.Flush()
		}
		if jsonF != nil {
			b, _ := json.MarshalIndent(r, "  ", "  ")
			if writeN > 0 {
				_, _ = jsonF.WriteString(",\n")
			}
			_, _ = jsonF.Write(b)
			writeN++
		}

		if o.interval > 0 {
			time.Sleep(o.interval)
		}
	}

END:
	if csvW != nil {
		csvW.Flush()
	}
	if csvF != nil {
		_ = csvF.Close()
	}
	if jsonF != nil {
		_, _ = jsonF.WriteString("\n]\n")
		_ = jsonF.Close()
	}
	if htmlF != nil {
		if err := writeHTML(htmlF, rows); err != nil {
			slog.Error("write html", "err", err)
		}
		_ = htmlF.Close()
	}

	fmt.Println()
	fmt.Printf("poetsim: %d dispatches over %d iterations, final config id %d\n", h.dispatches, o.iterations, h.dispatched)

	if journal != nil {
		batches, err := journal.Batches()
		if err != nil {
			slog.Error("read journal", "err", err)
		} else {
			records := 0
			for _, b := range batches {
				records += len(b)
			}
			fmt.Printf("poetsim: journal at %s holds %d batches (%d records)\n", o.journalDir, len(batches), records)
		}
	}

	return nil
}

func parseConstraint(s string) (engine.Constraint, error) {
	switch s {
	case "performance", "":
		return engine.Performance, nil
	case "power":
		return engine.Power, nil
	default:
		return 0, fmt.Errorf("unknown constraint %q (want performance or power)", s)
	}
}

func printSimHeader(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "TICK\tCONSTRAINT\tPERF\tPOWER\tCONFIG_ID")
	fmt.Fprintln(tw, "----\t----------\t----\t-----\t---------")
	tw.Flush()
}

func printSimRow(tw *tabwriter.Writer, r row) {
	fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%d\n", r.Tick, r.Constraint, r.Perf, r.Power, r.ConfigID)
	tw.Flush()
}

func writeHTML(f *os.File, rows []row) error {
	var buf bytes.Buffer
	if err := simTpl.Execute(&buf, struct{ Rows []row }{rows}); err != nil {
		return err
	}
	_, err := f.Write(buf.Bytes())
	return err
}

var simTpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>poetsim Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
</style>
<h1>poetsim Report</h1>
<p>Rows: {{len .Rows}}</p>
<table>
<thead><tr><th>tick</th><th>constraint</th><th>perf</th><th>power</th><th>config id</th></tr></thead>
<tbody>
{{range .Rows}}
<tr><td>{{.Tick}}</td><td>{{.Constraint}}</td><td>{{printf "%.4f" .Perf}}</td><td>{{printf "%.4f" .Power}}</td><td>{{.ConfigID}}</td></tr>
{{end}}
</tbody>
</table>
</html>`))
