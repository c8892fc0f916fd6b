package journal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rustyeddy/signaltrader/perf"
)

// RunReport is the JSON summary written next to a run's CSV files.
type RunReport struct {
	RunID     string             `json:"run_id"`
	Symbol    string             `json:"symbol"`
	Dataset   string             `json:"dataset,omitempty"`
	Config    json.RawMessage    `json:"config,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	Undefined []string           `json:"undefined,omitempty"`
	Skipped   map[string]int     `json:"skipped,omitempty"`
}

func NewRunReport(run BacktestRun, rep perf.Report, skipped map[string]int) RunReport {
	out := RunReport{
		RunID:     run.RunID,
		Symbol:    run.Symbol,
		Dataset:   run.Dataset,
		Metrics:   rep.Metrics,
		Undefined: rep.Undefined,
		Skipped:   skipped,
	}
	if json.Valid(run.Config) {
		out.Config = json.RawMessage(run.Config)
	}
	return out
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}
