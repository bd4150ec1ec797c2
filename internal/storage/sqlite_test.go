//go:build sqlite

package storage

import (
	"path/filepath"
	"testing"

	"sleeptimer/pkg/logx"
)

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "sleeptimer.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, st)
}
