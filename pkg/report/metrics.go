package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics is one run as gauges, labelled by the executable so several
// textfiles can be scraped side by side.
type runMetrics struct {
	elapsed   *prometheus.GaugeVec
	exitCode  *prometheus.GaugeVec
	available *prometheus.GaugeVec
	cpu       *prometheus.GaugeVec
	maxRSS    *prometheus.GaugeVec
	swaps     *prometheus.GaugeVec
	faults    *prometheus.GaugeVec
	blockOps  *prometheus.GaugeVec
	switches  *prometheus.GaugeVec
}

func newRunMetrics(reg prometheus.Registerer) *runMetrics {
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "track",
			Name:      name,
			Help:      help,
		}, append([]string{"command"}, labels...))
		reg.MustRegister(g)
		return g
	}
	return &runMetrics{
		elapsed:   gauge("elapsed_seconds", "Wall-clock duration of the tracked command."),
		exitCode:  gauge("exit_code", "Exit code of the tracked command, -1 when killed by a signal.", "signal"),
		available: gauge("usage_available", "1 when resource counters were collected."),
		cpu:       gauge("cpu_seconds", "CPU time consumed by the tracked command.", "mode"),
		maxRSS:    gauge("max_rss_bytes", "Peak resident set size."),
		swaps:     gauge("swaps", "Times the command was swapped out."),
		faults:    gauge("page_faults", "Page faults by kind.", "kind"),
		blockOps:  gauge("block_operations", "File system block operations by direction.", "direction"),
		switches:  gauge("context_switches", "Context switches by kind.", "kind"),
	}
}

func (m *runMetrics) observe(rec Record) {
	command := ""
	if len(rec.Command) > 0 {
		command = rec.Command[0]
	}
	m.elapsed.WithLabelValues(command).Set(float64(rec.ElapsedNanos) / 1e9)
	m.exitCode.WithLabelValues(command, rec.Signal).Set(float64(rec.ExitCode))

	if rec.Usage == nil {
		m.available.WithLabelValues(command).Set(0)
		return
	}
	m.available.WithLabelValues(command).Set(1)
	u := rec.Usage
	m.cpu.WithLabelValues(command, "user").Set(float64(u.UserTimeMicros) / 1e6)
	m.cpu.WithLabelValues(command, "system").Set(float64(u.SystemTimeMicros) / 1e6)
	m.maxRSS.WithLabelValues(command).Set(float64(u.MaxRSSKiB) * 1024)
	m.swaps.WithLabelValues(command).Set(float64(u.Swaps))
	m.faults.WithLabelValues(command, "minor").Set(float64(u.PageReclaims))
	m.faults.WithLabelValues(command, "major").Set(float64(u.PageFaults))
	m.blockOps.WithLabelValues(command, "in").Set(float64(u.BlockInputOps))
	m.blockOps.WithLabelValues(command, "out").Set(float64(u.BlockOutputOps))
	m.switches.WithLabelValues(command, "voluntary").Set(float64(u.VoluntarySwitches))
	m.switches.WithLabelValues(command, "involuntary").Set(float64(u.InvoluntarySwitches))
}

// WriteMetricsTextfile writes rec in the node_exporter textfile format. The
// file is replaced atomically.
func WriteMetricsTextfile(path string, rec Record) error {
	reg := prometheus.NewRegistry()
	newRunMetrics(reg).observe(rec)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
