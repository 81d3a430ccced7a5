// Package report renders normalization run results for operator review of
// bad batches.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

// BuildRunPDF renders a run summary PDF.
func BuildRunPDF(result *normalization.NormalizationResult, nctx normalization.NormalizationContext) ([]byte, error) {
	if result == nil {
		return nil, errors.New("report: nil result")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Normalization Run Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Connector: %s", nctx.ConnectorID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant: %s", nctx.TenantID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Batch: %s", nctx.BatchID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Ingested: %s", nctx.IngestedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Success: %t", result.Success))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Input hash: %s", result.InputHash))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Output hash: %s", result.OutputHash))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Records: %d in, %d points, %d skipped",
		result.Stats.InputRecords, result.Stats.OutputPoints, result.Stats.SkippedRecords))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Diagnostics: %d errors, %d warnings",
		result.Stats.ErrorCount, result.Stats.WarningCount))
	pdf.Ln(8)

	// Diagnostics table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Field", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Code", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, d := range result.Diagnostics {
		pdf.CellFormat(60, 6, d.Field, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, string(d.Code), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(d.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, d.Message, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunXLSX renders a run summary plus diagnostics detail as XLSX.
func BuildRunXLSX(result *normalization.NormalizationResult, nctx normalization.NormalizationContext) ([]byte, error) {
	if result == nil {
		return nil, errors.New("report: nil result")
	}
	f := excelize.NewFile()
	summarySheet := "summary"
	diagnosticsSheet := "diagnostics"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(diagnosticsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Normalization Run Report")
	_ = f.SetCellValue(summarySheet, "A3", "Connector")
	_ = f.SetCellValue(summarySheet, "B3", nctx.ConnectorID)
	_ = f.SetCellValue(summarySheet, "A4", "Tenant")
	_ = f.SetCellValue(summarySheet, "B4", nctx.TenantID)
	_ = f.SetCellValue(summarySheet, "A5", "Batch")
	_ = f.SetCellValue(summarySheet, "B5", nctx.BatchID)
	_ = f.SetCellValue(summarySheet, "A6", "Success")
	_ = f.SetCellValue(summarySheet, "B6", result.Success)
	_ = f.SetCellValue(summarySheet, "A7", "Input Records")
	_ = f.SetCellValue(summarySheet, "B7", result.Stats.InputRecords)
	_ = f.SetCellValue(summarySheet, "A8", "Output Points")
	_ = f.SetCellValue(summarySheet, "B8", result.Stats.OutputPoints)
	_ = f.SetCellValue(summarySheet, "A9", "Skipped Records")
	_ = f.SetCellValue(summarySheet, "B9", result.Stats.SkippedRecords)
	_ = f.SetCellValue(summarySheet, "A10", "Errors")
	_ = f.SetCellValue(summarySheet, "B10", result.Stats.ErrorCount)
	_ = f.SetCellValue(summarySheet, "A11", "Warnings")
	_ = f.SetCellValue(summarySheet, "B11", result.Stats.WarningCount)
	_ = f.SetCellValue(summarySheet, "A12", "Input Hash")
	_ = f.SetCellValue(summarySheet, "B12", result.InputHash)
	_ = f.SetCellValue(summarySheet, "A13", "Output Hash")
	_ = f.SetCellValue(summarySheet, "B13", result.OutputHash)

	_ = f.SetCellValue(diagnosticsSheet, "A1", "Field")
	_ = f.SetCellValue(diagnosticsSheet, "B1", "Code")
	_ = f.SetCellValue(diagnosticsSheet, "C1", "Code Number")
	_ = f.SetCellValue(diagnosticsSheet, "D1", "Severity")
	_ = f.SetCellValue(diagnosticsSheet, "E1", "Message")
	_ = f.SetCellValue(diagnosticsSheet, "F1", "Raw Value")
	_ = f.SetCellValue(diagnosticsSheet, "G1", "Expected")
	_ = f.SetCellValue(diagnosticsSheet, "H1", "Remediation")
	for i, d := range result.Diagnostics {
		row := i + 2
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("A%d", row), d.Field)
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("B%d", row), string(d.Code))
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("C%d", row), d.CodeNumber)
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("D%d", row), string(d.Severity))
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("E%d", row), d.Message)
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("F%d", row), transform.Stringify(d.RawValue))
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("G%d", row), d.Expected)
		_ = f.SetCellValue(diagnosticsSheet, fmt.Sprintf("H%d", row), d.Remediation)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
