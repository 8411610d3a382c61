package report

import "gameserverctl/internal/models"

// IPrinter is the interface for printing status reports
type IPrinter interface {
	PrintReport(report *models.StatusReport, format OutputFormatType) error
}
