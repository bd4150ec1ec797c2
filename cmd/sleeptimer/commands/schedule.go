package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"sleeptimer/internal/schedule"
)

func newScheduleCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or edit the weekly bedtimes",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the bedtime of every weekday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			w, err := c.Schedule(cmd.Context())
			if err != nil {
				return err
			}
			return printWeek(cmd.OutOrStdout(), w)
		},
	}
	set := &cobra.Command{
		Use:   "set <day> <HH:MM|off|on>",
		Short: "Change one weekday",
		Example: `  sleeptimer schedule set mon 22:30
  sleeptimer schedule set saturday off`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			w, err := c.SetDay(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printWeek(cmd.OutOrStdout(), w)
		},
	}
	cmd.AddCommand(show, set)
	// Bare "schedule" behaves like "schedule show".
	cmd.RunE = show.RunE
	cmd.Args = cobra.NoArgs
	return cmd
}

func newExportICSCmd(o *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export the schedule as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			b, err := c.ICS(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := afero.WriteFile(o.fs, output, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func printWeek(out io.Writer, week schedule.Week) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tBEDTIME")
	for i, d := range week {
		bed := d.Clock()
		if !d.Enabled {
			bed = "off"
		}
		fmt.Fprintf(w, "%s\t%s\n", schedule.DayNames[i], bed)
	}
	return w.Flush()
}
