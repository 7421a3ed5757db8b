// Package test provides a testing store backed by an on-disk sqlite
// database in a per-test temp directory.
package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/internal/profile"
	"github.com/hrygo/docpilot/store"
	"github.com/hrygo/docpilot/store/db"
)

// NewTestingStore creates a migrated sqlite-backed store rooted in t.TempDir.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "prod",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "docpilot_test.db"),
	}

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}
