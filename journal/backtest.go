package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time
	Dataset string // file path or ClickHouse table the bars came from

	Symbol   string
	Strategy string
	Config   []byte // simulator config as JSON

	// Brackets and risk
	StopATR      float64
	TargetATR    float64
	RR           float64 // TargetATR / StopATR
	RiskFraction float64 // 0.01 (1%)

	Start time.Time
	End   time.Time
	Bars  int

	// Results
	Trades  int
	Wins    int
	Losses  int
	Skipped int

	StartBalance float64
	EndBalance   float64

	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
	Sharpe       float64

	OrgPath   string
	EquityPNG string

	Notes       []string
	NextActions []string
}

func rr(stop, target float64) float64 {
	if stop == 0 {
		return 0
	}
	return target / stop
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// RenderOrg returns the run as an Org-mode block.
func (v *BacktestRun) RenderOrg() (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, v); err != nil {
		return "", fmt.Errorf("render org for run %s: %w", v.RunID, err)
	}
	return buf.String(), nil
}

// WriteBacktestOrg writes RenderOrg to v.OrgPath.
func (v *BacktestRun) WriteBacktestOrg() error {
	if v.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", v.RunID)
	}
	s, err := v.RenderOrg()
	if err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{if .Strategy}}{{.Strategy}}{{else}}signal{{end}} {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{if .Strategy}}{{.Strategy}}{{else}}signal{{end}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:SKIPPED:     {{.Skipped}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter        | Value |
|------------------+-------|
| Config           | {{printf "%s" .Config}} |
| Stop (ATR)       | {{printf "%.2f" .StopATR}} |
| Target (ATR)     | {{printf "%.2f" .TargetATR}} |
| R:R              | {{printf "%.2f" .RR}} |
| Risk per Trade % | {{printf "%.2f" (mul100 .RiskFraction)}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Sharpe:           *{{printf "%.2f" .Sharpe}}*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}*

** Equity Curve
{{- if .EquityPNG }}
[[file:{{.EquityPNG}}]]
{{- else }}
# (optional) insert an exported equity curve image here
{{- end }}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Skipped | {{.Skipped}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
