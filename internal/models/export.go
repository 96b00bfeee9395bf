package models

import "time"

// ExportFormat names a supported report format.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportResult describes a rendered report ready for download.
type ExportResult struct {
	ID          string       `json:"id"`
	Format      ExportFormat `json:"format"`
	FileName    string       `json:"fileName"`
	RowCount    int          `json:"rowCount"`
	DownloadURL string       `json:"downloadUrl"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}
