package workers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/test/helpers"
)

func writeExport(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestCleanupProcessor_CleanupExports(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("removes_only_expired_files", func(t *testing.T) {
		dir := t.TempDir()
		old := filepath.Join(dir, "ledger-exports", "ledger-20260429-030000.xlsx")
		fresh := filepath.Join(dir, "ledger-exports", "ledger-20260501-030000.xlsx")
		writeExport(t, old, now.Add(-48*time.Hour))
		writeExport(t, fresh, now.Add(-9*time.Hour))

		p := NewCleanupProcessor(dir, helpers.TestLogger())
		p.now = func() time.Time { return now }

		task, err := NewCleanupExportsTask(24 * time.Hour)
		require.NoError(t, err)
		require.NoError(t, p.CleanupExports(ctx, task))

		assert.NoFileExists(t, old)
		assert.FileExists(t, fresh)
	})

	t.Run("missing_directory_is_noop", func(t *testing.T) {
		p := NewCleanupProcessor(filepath.Join(t.TempDir(), "absent"), helpers.TestLogger())

		task, err := NewCleanupExportsTask(time.Hour)
		require.NoError(t, err)
		assert.NoError(t, p.CleanupExports(ctx, task))
	})

	t.Run("non_positive_age_skips_retry", func(t *testing.T) {
		p := NewCleanupProcessor(t.TempDir(), helpers.TestLogger())

		err := p.CleanupExports(ctx, asynq.NewTask(TypeCleanupExports, []byte(`{"max_age":0}`)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})
}
