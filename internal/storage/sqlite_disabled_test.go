//go:build !sqlite

package storage

import (
	"errors"
	"testing"

	"sleeptimer/pkg/logx"
)

func TestOpenSQLiteWithoutTag(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "sqlite", Path: t.TempDir() + "/s.db"}, logx.Nop())
	if !errors.Is(err, ErrSQLiteUnavailable) {
		t.Fatalf("err = %v, want ErrSQLiteUnavailable", err)
	}
}
