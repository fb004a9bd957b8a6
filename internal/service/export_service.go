package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
	"github.com/brightpath-app/scheduling-api/pkg/export"
	"github.com/brightpath-app/scheduling-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type activeScheduleSource interface {
	Active(ctx context.Context, childID, weekStart string) (*dto.ActiveScheduleResponse, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportService renders the active week as a printable file and hands back a
// signed download token. Files age out via a periodic cleanup sweep.
type ExportService struct {
	schedules activeScheduleSource
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(schedules activeScheduleSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{schedules: schedules, storage: files, csv: csv, pdf: pdf, signer: signer, logger: logger, cfg: cfg}
}

// Export renders the active schedule for (child, week) in the given format.
func (s *ExportService) Export(ctx context.Context, childID, weekStart, format string) (*dto.ExportScheduleResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	active, err := s.schedules.Active(ctx, childID, weekStart)
	if err != nil {
		return nil, err
	}
	dataset := weekDataset(active.Items)

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Week of %s", weekStart))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	relPath := fmt.Sprintf("%s/%s-v%d.%s", childID, weekStart, active.Schedule.Version, format)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(active.Schedule.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export token")
	}
	return &dto.ExportScheduleResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Format:    format,
	}, nil
}

// Open validates a download token and returns the stored file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// StartCleanup sweeps expired export files until the context ends.
func (s *ExportService) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("export cleanup removed files", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

var exportDayNames = [weekDays + 1]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func weekDataset(items []models.ScheduleItem) export.Dataset {
	headers := []string{"Day", "Start", "End", "Type", "Activity", "Done"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		day := ""
		if item.Day >= 1 && item.Day <= weekDays {
			day = exportDayNames[item.Day]
		}
		done := ""
		if item.Completed {
			done = "yes"
		}
		rows = append(rows, map[string]string{
			"Day":      day,
			"Start":    formatClock(item.StartMinute),
			"End":      formatClock(item.EndMinute),
			"Type":     string(item.ItemType),
			"Activity": item.Label,
			"Done":     done,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
