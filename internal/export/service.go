package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/repository"
)

// Service produces XLSX workbooks summarizing completed processing jobs.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns a workbook (as bytes) with one row per completed job.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.ListCompleted(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if di, _ := f.GetSheetIndex("Sheet1"); di != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Finished",
		"Filename",
		"Language",
		"Method",
		"Confidence",
		"Pages",
		"Document Type",
		"Text Preview",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if j.FinishedAt != nil {
			write(1, j.FinishedAt.Format("2006-01-02 15:04"))
		} else {
			write(1, "")
		}
		write(2, j.Filename)
		write(3, j.Language)
		write(4, string(j.Method))
		write(5, fmt.Sprintf("%.2f", j.Confidence))
		write(6, j.PageCount)
		write(7, documentType(j.ResultJSON))
		write(8, truncate(j.Text, 200))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "C", "E", 12)
	_ = f.SetColWidth(sheet, "G", "G", 18)
	_ = f.SetColWidth(sheet, "H", "H", 70)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// documentType digs the classification out of the stored result payload.
func documentType(resultJSON []byte) string {
	if len(resultJSON) == 0 {
		return ""
	}
	var partial struct {
		StructuredData *struct {
			DocumentType string `json:"document_type"`
		} `json:"structuredData"`
	}
	if err := json.Unmarshal(resultJSON, &partial); err != nil || partial.StructuredData == nil {
		return ""
	}
	return partial.StructuredData.DocumentType
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
