// Package commands is the sleeptimer command line: "run" starts the daemon,
// everything else talks to it over the local control API.
package commands

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"sleeptimer/internal/config"
	"sleeptimer/internal/services/autostart"
	"sleeptimer/internal/services/control"
	logx "sleeptimer/pkg/logx"
)

// Registrar is the login-item surface the autostart commands need.
type Registrar interface {
	IsRegistered() bool
	Register() error
	Unregister() error
}

type rootOptions struct {
	cfgPath string
	addr    string
	token   string

	fs           afero.Fs
	httpClient   *http.Client
	newRegistrar func(log logx.Logger) (Registrar, error)
}

type Option func(*rootOptions)

// WithFs sets the filesystem export-ics writes to.
func WithFs(fsys afero.Fs) Option { return func(o *rootOptions) { o.fs = fsys } }

func WithHTTPClient(hc *http.Client) Option { return func(o *rootOptions) { o.httpClient = hc } }

// WithRegistrar replaces the OS login-item backend.
func WithRegistrar(fn func(log logx.Logger) (Registrar, error)) Option {
	return func(o *rootOptions) { o.newRegistrar = fn }
}

// NewRootCmd builds the full command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &rootOptions{
		fs: afero.NewOsFs(),
		newRegistrar: func(log logx.Logger) (Registrar, error) {
			return autostart.New(nil, log)
		},
	}
	for _, fn := range opts {
		fn(o)
	}

	root := &cobra.Command{
		Use:   "sleeptimer",
		Short: "Put the computer to sleep on a weekly schedule",
		Long: `sleeptimer keeps one bedtime per weekday. When the next one comes up
it warns a minute ahead, then suspends the machine. Snooze pushes the
bedtime back; cancel skips it until the schedule re-arms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.cfgPath, "config", DefaultConfigPath(), "config file (yaml or json)")
	root.PersistentFlags().StringVar(&o.addr, "addr", "", "control API address (default from config)")
	root.PersistentFlags().StringVar(&o.token, "token", "", "control API token (default from config)")

	root.AddCommand(
		newRunCmd(o),
		newStatusCmd(o),
		newArmCmd(o),
		newCancelCmd(o),
		newSnoozeCmd(o),
		newNextCmd(o),
		newEventsCmd(o),
		newScheduleCmd(o),
		newExportICSCmd(o),
		newAutostartCmd(o),
	)
	return root
}

// DefaultConfigPath is <user config dir>/sleeptimer/config.yaml, or
// ./config.yaml when the user config dir is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, autostart.AppName, "config.yaml")
}

// client targets --addr/--token, falling back to the config file's control
// section when the flags are empty.
func (o *rootOptions) client() (*control.Client, error) {
	addr, token := strings.TrimSpace(o.addr), strings.TrimSpace(o.token)
	if addr == "" || token == "" {
		cfg, err := config.NewConfigManager(o.cfgPath).Parse()
		switch {
		case err == nil:
			if addr == "" {
				addr = cfg.ControlAddr()
			}
			if token == "" {
				token = cfg.Control.Token
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	return control.NewClient(addr, token, o.httpClient), nil
}
