package journal

import (
	"bytes"
	"os"
	"text/template"
	"time"
)

// RunRecord summarizes one backtest run.
type RunRecord struct {
	RunID      string
	Created    time.Time
	MarginMode string

	InitialCash float64
	FeeRate     float64
	Leverage    float64

	FinalCash float64
	FinalPnL  float64
	Fills     int
}

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrgTemplate = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run summary and its fills as an Org-mode section.
func FormatRunOrg(r RunRecord, fills []FillRecord) (string, error) {
	buf := new(bytes.Buffer)
	err := runOrgTemplate.Execute(buf, struct {
		RunRecord
		FillsOrg string
	}{r, FormatFillsOrg(fills)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteRunOrg writes FormatRunOrg output to path.
func WriteRunOrg(path string, r RunRecord, fills []FillRecord) error {
	s, err := FormatRunOrg(r, fills)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

const RunOrgTemplate = `* BACKTEST RUN {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:PROPERTIES:
:RUN_ID:       {{.RunID}}
:MARGIN_MODE:  {{.MarginMode}}
:INITIAL_CASH: {{printf "%.2f" .InitialCash}}
:FEE_RATE_PCT: {{printf "%.4f" (mul100 .FeeRate)}}
:LEVERAGE:     {{printf "%.2f" .Leverage}}
:FINAL_CASH:   {{printf "%.2f" .FinalCash}}
:FINAL_PNL:    {{printf "%.2f" .FinalPnL}}
:FILLS:        {{.Fills}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .FillsOrg }}

{{ .FillsOrg }}
{{- end }}
`
