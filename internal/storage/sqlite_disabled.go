//go:build !sqlite

package storage

import (
	"errors"

	"sleeptimer/pkg/logx"
)

// ErrSQLiteUnavailable is returned for driver "sqlite" in builds without
// the sqlite tag.
var ErrSQLiteUnavailable = errors.New("storage: sqlite driver not compiled in (rebuild with -tags sqlite)")

func openSQLite(Config, logx.Logger) (Store, error) { return nil, ErrSQLiteUnavailable }
