package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sleeptimer/internal/services/sleeptimer"
)

func newStatusCmd(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the countdown and the next bedtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(cmd.OutOrStdout(), st.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status document")
	return cmd
}

func newArmCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "arm",
		Short: "Start the countdown to the next scheduled bedtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			st, err := c.Arm(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newCancelCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Stop the running countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			st, err := c.Cancel(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

var errNotArmed = errors.New("nothing to snooze: no countdown is running")

func newSnoozeCmd(o *rootOptions) *cobra.Command {
	var ext time.Duration
	cmd := &cobra.Command{
		Use:   "snooze",
		Short: "Push the running countdown back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ext < 0 {
				return fmt.Errorf("--for must be positive, got %s", ext)
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			resp, err := c.Snooze(cmd.Context(), ext)
			if err != nil {
				return err
			}
			if !resp.Snoozed {
				return errNotArmed
			}
			printStatus(cmd.OutOrStdout(), resp.Status)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ext, "for", 0, "extension (default from the daemon config, 5m)")
	return cmd
}

func newNextCmd(o *rootOptions) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the upcoming bedtimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			up, err := c.Upcoming(cmd.Context(), n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(up) == 0 {
				fmt.Fprintln(out, "no bedtime scheduled")
				return nil
			}
			for _, t := range up {
				fmt.Fprintln(out, t.Format("Mon 2006-01-02 15:04 MST"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 7, "how many occurrences to list")
	return cmd
}

func newEventsCmd(o *rootOptions) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the recent timer history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			evs, err := c.Events(cmd.Context(), n)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tEPISODE\tDETAIL")
			for _, e := range evs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.At.Format(time.DateTime), e.Kind, dash(e.Episode), dash(e.Detail))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 20, "how many events to show")
	return cmd
}

func printStatus(out io.Writer, st sleeptimer.Status) {
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "State:\t%s\n", st.Phase)
	if st.Phase == "armed" {
		fmt.Fprintf(w, "Sleeps in:\t%s\n", st.RemainingText)
		fmt.Fprintf(w, "Sleeps at:\t%s\n", st.Target.Format("Mon 2006-01-02 15:04:05 MST"))
		if st.Warned {
			fmt.Fprintf(w, "Warning:\tsent\n")
		}
	}
	if st.NextText != "" {
		fmt.Fprintf(w, "Next bedtime:\t%s\n", st.NextText)
	} else {
		fmt.Fprintf(w, "Next bedtime:\tnone scheduled\n")
	}
	if !st.LastFired.IsZero() {
		fmt.Fprintf(w, "Last slept:\t%s\n", st.LastFired.Format("Mon 2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
