package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	logx "sleeptimer/pkg/logx"
)

// The autostart commands work on the local login item directly; the daemon
// does not have to be running.
func newAutostartCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the daemon at login",
	}
	registrar := func(cmd *cobra.Command) (Registrar, error) {
		return o.newRegistrar(logx.NewWriter(cmd.ErrOrStderr(), "warn"))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start the daemon when you log in",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := registrar(cmd)
				if err != nil {
					return err
				}
				if err := r.Register(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "autostart enabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting the daemon at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := registrar(cmd)
				if err != nil {
					return err
				}
				if err := r.Unregister(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the login item is installed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := registrar(cmd)
				if err != nil {
					return err
				}
				state := "disabled"
				if r.IsRegistered() {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", state)
				return nil
			},
		},
	)
	return cmd
}
