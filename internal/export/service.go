package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/claims-tracker/internal/claims"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
)

// Sheet is the worksheet the run report is written to.
const Sheet = "Runs"

// Headers are the report columns, in order.
var Headers = []string{
	"Run ID",
	"File",
	"Started (UTC)",
	"Duration (s)",
	"Status",
	"Stage",
	"Failed Step",
	"Error Class",
	"Error",
	"LLM Source",
	"Prediction",
	"Probability",
	"Risk Score",
	"Claim Amount",
}

// Service produces XLSX bytes for run reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RunsXLSX renders one row per run.
func (s *Service) RunsXLSX(runs []entity.RunRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(Sheet, "A1", last, style)
	}

	for i, r := range runs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(Sheet, cell, v)
		}
		write(1, r.ID.String())
		write(2, r.FileName)
		write(3, r.StartedAt.UTC().Format(time.DateTime))
		write(4, roundSeconds(r.Duration()))
		write(5, r.Status)
		write(6, r.Stage)
		write(7, deref(r.FailedStep))
		write(8, deref(r.ErrorClass))
		write(9, truncate(deref(r.ErrorMessage), 240))
		write(10, deref(r.LLMSource))
		write(11, deref(r.Prediction))
		if r.Probability != nil {
			write(12, *r.Probability)
		}
		if r.RiskScore != nil {
			write(13, *r.RiskScore)
		}
		if amount, ok := claimAmount(r.ModelInput); ok {
			write(14, amount)
		}
	}

	_ = f.SetColWidth(Sheet, "A", "A", 38) // run id
	_ = f.SetColWidth(Sheet, "B", "B", 32) // file
	_ = f.SetColWidth(Sheet, "C", "C", 20) // started
	_ = f.SetColWidth(Sheet, "I", "I", 60) // error
	_ = f.SetColWidth(Sheet, "J", "J", 34) // llm source
	if len(runs) > 0 {
		_ = f.AutoFilter(Sheet, fmt.Sprintf("A1:N%d", len(runs)+1), nil)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(runs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func claimAmount(modelInput json.RawMessage) (float64, bool) {
	if len(modelInput) == 0 {
		return 0, false
	}
	var in claims.Instances
	if err := json.Unmarshal(modelInput, &in); err != nil || len(in.Instances) == 0 {
		return 0, false
	}
	return in.Instances[0].ClaimAmount, true
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
