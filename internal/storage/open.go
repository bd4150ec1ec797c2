package storage

import (
	"errors"
	"strings"

	"github.com/spf13/afero"

	"sleeptimer/pkg/logx"
)

// Open initializes the configured store on the OS filesystem.
func Open(cfg Config, log logx.Logger) (Store, error) {
	return OpenFS(afero.NewOsFs(), cfg, log)
}

// OpenFS is Open with an explicit filesystem for the file driver.
func OpenFS(fs afero.Fs, cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("driver", driverName(driver)))

	switch driver {
	case "", "none", "memory":
		return NewMemory(), nil
	case "file":
		return openFile(fs, cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func driverName(d string) string {
	if d == "" || d == "none" {
		return "memory"
	}
	return d
}
