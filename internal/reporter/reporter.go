package reporter

import (
	"binance-rsi-alerts/internal/models"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const timeLayout = "2006-01-02 15:04"

// RenderSummary prints the tracked pairs of state as a table, oversold
// pairs of the current run first, then the rest by ascending minimum RSI.
func RenderSummary(w io.Writer, state models.State, oversold []models.OversoldPair) {
	flagged := make(map[string]bool, len(oversold))
	for _, p := range oversold {
		flagged[p.TradingPair] = true
	}

	pairs := make([]string, 0, len(state.MinRSI))
	for pair := range state.MinRSI {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if flagged[a] != flagged[b] {
			return flagged[a]
		}
		ra, rb := state.MinRSI[a], state.MinRSI[b]
		if ra.MinRSIValue != rb.MinRSIValue {
			return ra.MinRSIValue < rb.MinRSIValue
		}
		return a < b
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("RSI state, last updated %s", formatTime(state.LastUpdated)))
	t.AppendHeader(table.Row{"Pair", "Last RSI", "Last seen", "Min RSI", "Min seen", "Oversold"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	for _, pair := range pairs {
		rec := state.MinRSI[pair]
		mark := ""
		if flagged[pair] {
			mark = "yes"
		}
		t.AppendRow(table.Row{
			pair,
			fmt.Sprintf("%.2f", rec.LastRSIValue),
			formatTime(rec.LastRSIValueTimestamp),
			fmt.Sprintf("%.2f", rec.MinRSIValue),
			formatTime(rec.MinRSIValueTimestamp),
			mark,
		})
	}
	t.AppendFooter(table.Row{"Total", len(pairs), "", "", "Oversold", len(oversold)})
	t.Render()
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format(timeLayout)
}
