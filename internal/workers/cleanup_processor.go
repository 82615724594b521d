// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

// CleanupProcessor prunes ledger exports written to local disk
type CleanupProcessor struct {
	exportDir string
	now       func() time.Time
	logger    *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(exportDir string, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		exportDir: exportDir,
		now:       time.Now,
		logger:    logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupExports removes export files older than the payload's max age.
func (p *CleanupProcessor) CleanupExports(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	if payload.MaxAge <= 0 {
		return fmt.Errorf("max_age must be positive: %w", asynq.SkipRetry)
	}

	p.logger.InfoContext(ctx, "cleaning up exports",
		slog.String("dir", p.exportDir),
		slog.Duration("max_age", payload.MaxAge))

	cutoff := p.now().Add(-payload.MaxAge)
	var deletedCount int
	err := filepath.WalkDir(p.exportDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			p.logger.WarnContext(ctx, "failed to delete export",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil
		}
		deletedCount++
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to walk export directory: %w", err)
	}

	p.logger.InfoContext(ctx, "exports cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
