package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nvr-ai/go-hebench/stats"
)

// timeUnits maps a time unit symbol to its factor relative to one second.
var timeUnits = []struct {
	symbol string
	factor float64
}{
	{symbol: "s", factor: 1},
	{symbol: "ms", factor: 1e3},
	{symbol: "us", factor: 1e6},
	{symbol: "ns", factor: 1e9},
}

// unitFor returns the symbol and factor that express seconds in unit. An empty or
// unknown unit picks the largest unit that shows the average as at least 1.
func unitFor(unit string, seconds float64) (string, float64) {
	for _, u := range timeUnits {
		if u.symbol == unit {
			return u.symbol, u.factor
		}
	}
	for _, u := range timeUnits {
		if seconds == 0 || seconds*u.factor >= 1 {
			return u.symbol, u.factor
		}
	}
	last := timeUnits[len(timeUnits)-1]
	return last.symbol, last.factor
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

var (
	statsColumns = []string{
		"Average", "Standard Deviation", "Time Unit", "Time Factor", "Min", "Max", "Median",
		"Trimmed Average", "Trimmed Standard Deviation",
		"1-th percentile", "10-th percentile", "90-th percentile", "99-th percentile",
	}
	summaryColumns = []string{"Average", "Standard Deviation", "Time Unit", "Time Factor"}
)

// preamble writes the header, notes and main event rows shared by the per-report CSVs.
func (r *Report) preamble(w *csv.Writer) error {
	h := r.header
	rows := [][]string{
		{"Run", h.RunID},
		{"Backend", h.Backend},
		{"Workload", string(h.Descriptor.Workload), h.WorkloadParams.String()},
		{"Category", string(h.Descriptor.Category)},
		{"Data type", string(h.Descriptor.DataType)},
		{"Cipher mask", strconv.FormatUint(uint64(h.Descriptor.CipherParamMask), 2)},
		{"Scheme", string(h.Descriptor.Scheme)},
		{"Security", strconv.Itoa(h.Descriptor.Security)},
		{},
		{"Notes"},
	}
	for _, line := range r.footer {
		rows = append(rows, []string{line})
	}
	rows = append(rows, []string{})
	if main, ok := r.Main(); ok {
		rows = append(rows, []string{"Main event", strconv.FormatUint(uint64(main.EventTypeID), 10), main.Name})
	}
	rows = append(rows, []string{})
	return w.WriteAll(rows)
}

// WriteSummaryCSV writes one row per event type with the headline statistics.
func (r *Report) WriteSummaryCSV(out io.Writer) error {
	w := csv.NewWriter(out)
	if err := r.preamble(w); err != nil {
		return fmt.Errorf("failed to write summary preamble: %w", err)
	}

	header := []string{"ID", "Event", "Samples per sec", "Samples per sec trimmed"}
	header = append(header, prefixed("Wall ", summaryColumns)...)
	header = append(header, prefixed("CPU ", summaryColumns)...)
	header = append(header, "Input Samples")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, e := range r.entries {
		row := []string{
			strconv.FormatUint(uint64(e.EventTypeID), 10),
			e.Name,
			formatFloat(e.Stats.Wall.OpsPerSec),
			formatFloat(e.Stats.Wall.OpsPerSecTrim),
		}
		row = append(row, r.summaryCells(e.Stats.Wall.Ave, e.Stats.Wall.Variance)...)
		row = append(row, r.summaryCells(e.Stats.CPU.Ave, e.Stats.CPU.Variance)...)
		row = append(row, strconv.FormatUint(e.Stats.InputSampleCount, 10))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Report) summaryCells(ave, variance float64) []string {
	symbol, factor := unitFor(r.header.TimeUnit, ave)
	return []string{
		formatFloat(ave * factor),
		formatFloat(math.Sqrt(variance) * factor),
		symbol,
		formatFloat(1 / factor),
	}
}

// WriteStatsCSV writes the full wall and CPU statistics of every event type.
func (r *Report) WriteStatsCSV(out io.Writer) error {
	w := csv.NewWriter(out)
	if err := r.preamble(w); err != nil {
		return fmt.Errorf("failed to write stats preamble: %w", err)
	}
	if err := w.Write(statsHeader(nil)); err != nil {
		return err
	}
	for _, e := range r.entries {
		if err := w.Write(r.statsRow(nil, e)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func statsHeader(lead []string) []string {
	header := append(append([]string(nil), lead...), "ID", "Event", "Total Wall Time", "Samples per sec", "Samples per sec trimmed")
	header = append(header, prefixed("Wall ", statsColumns)...)
	header = append(header, prefixed("CPU ", statsColumns)...)
	return append(header, "Input Samples")
}

func (r *Report) statsRow(lead []string, e Entry) []string {
	wallSymbol, wallFactor := unitFor(r.header.TimeUnit, e.Stats.Wall.Ave)
	row := append(append([]string(nil), lead...),
		strconv.FormatUint(uint64(e.EventTypeID), 10),
		e.Name,
		formatFloat(e.Stats.Wall.Total*wallFactor),
		formatFloat(e.Stats.Wall.OpsPerSec),
		formatFloat(e.Stats.Wall.OpsPerSecTrim),
	)
	row = append(row, statsCells(e.Stats.Wall, wallSymbol, wallFactor)...)
	cpuSymbol, cpuFactor := unitFor(r.header.TimeUnit, e.Stats.CPU.Ave)
	row = append(row, statsCells(e.Stats.CPU, cpuSymbol, cpuFactor)...)
	return append(row, strconv.FormatUint(e.Stats.InputSampleCount, 10))
}

// WriteOverviewCSV writes the main event statistics of each report, one row per report.
func WriteOverviewCSV(out io.Writer, reports []*Report) error {
	w := csv.NewWriter(out)
	lead := []string{"Workload", "Run", "Category", "Data type", "Cipher text", "Scheme", "Security", "Extra"}
	if err := w.Write(statsHeader(lead)); err != nil {
		return err
	}
	for _, r := range reports {
		main, ok := r.Main()
		if !ok {
			continue
		}
		d := r.header.Descriptor
		row := r.statsRow([]string{
			fmt.Sprintf("%s %s", d.Workload, r.header.WorkloadParams),
			r.header.RunID,
			string(d.Category),
			string(d.DataType),
			strconv.FormatUint(uint64(d.CipherParamMask), 2),
			string(d.Scheme),
			strconv.Itoa(d.Security),
			strconv.FormatInt(d.Other, 10),
		}, main)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func statsCells(s stats.Summary, symbol string, factor float64) []string {
	return []string{
		formatFloat(s.Ave * factor),
		formatFloat(math.Sqrt(s.Variance) * factor),
		symbol,
		formatFloat(1 / factor),
		formatFloat(s.Min * factor),
		formatFloat(s.Max * factor),
		formatFloat(s.Median * factor),
		formatFloat(s.AveTrim * factor),
		formatFloat(math.Sqrt(s.VarianceTrim) * factor),
		formatFloat(s.P1 * factor),
		formatFloat(s.P10 * factor),
		formatFloat(s.P90 * factor),
		formatFloat(s.P99 * factor),
	}
}

func prefixed(prefix string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = prefix + c
	}
	return out
}
