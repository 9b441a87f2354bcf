package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/practice-scheduling-billing/internal/app"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/calendar"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/logger"
	"github.com/hackgods/practice-scheduling-billing/internal/report"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "calendarctl",
		Short:        "Inspect calendar ranges, recurrences and the practice schedule",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(rangeCmd())
	rootCmd.AddCommand(navigateCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func rangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Print the date window a view covers",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, current, err := viewFlags(cmd)
			if err != nil {
				return err
			}
			r := calendar.ResolveRange(view, current, time.Now())
			return printJSON(cmd, map[string]any{
				"view":  view,
				"start": r.StartDate(),
				"end":   r.EndDate(),
				"days":  r.Days(),
			})
		},
	}
	addViewFlags(cmd)
	return cmd
}

func navigateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "navigate",
		Short: "Step the current date one view unit forward or back",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, current, err := viewFlags(cmd)
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("direction")
			dir, ok := calendar.ParseDirection(raw)
			if !ok {
				return fmt.Errorf("unknown direction %q", raw)
			}
			next := calendar.Navigate(view, current, dir)
			r := calendar.ResolveRange(view, next, time.Now())
			return printJSON(cmd, map[string]any{
				"view":    view,
				"current": isodate.Format(next),
				"start":   r.StartDate(),
				"end":     r.EndDate(),
			})
		},
	}
	addViewFlags(cmd)
	cmd.Flags().String("direction", "next", "next or prev")
	return cmd
}

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the upcoming dates of a recurring transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			freq, _ := flags.GetString("frequency")
			interval, _ := flags.GetInt("interval")
			days, _ := flags.GetIntSlice("days")
			limit, _ := flags.GetInt("limit")
			startRaw, _ := flags.GetString("start")

			cfg := transaction.RecurrenceConfig{
				Frequency:  transaction.Frequency(freq),
				Interval:   interval,
				DaysOfWeek: days,
			}
			if flags.Changed("day-of-month") {
				dom, _ := flags.GetInt("day-of-month")
				cfg.DayOfMonth = &dom
			}
			if flags.Changed("until") {
				until, _ := flags.GetString("until")
				cfg.EndDate = &until
			}
			if flags.Changed("count") {
				count, _ := flags.GetInt("count")
				cfg.MaxOccurrences = &count
			}

			start := time.Now()
			if startRaw != "" {
				d, err := isodate.Parse(startRaw)
				if err != nil {
					return err
				}
				start = d
			}
			dates, err := transaction.Preview(cfg, start, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, dates)
		},
	}
	flags := cmd.Flags()
	flags.String("frequency", "monthly", "daily, weekly, monthly or yearly")
	flags.Int("interval", 1, "repeat every N units")
	flags.IntSlice("days", nil, "weekdays for weekly recurrence, 0 is Sunday")
	flags.Int("day-of-month", 1, "day for monthly recurrence")
	flags.String("until", "", "last date, YYYY-MM-DD")
	flags.Int("count", 0, "stop after N occurrences")
	flags.String("start", "", "first date, YYYY-MM-DD (default today)")
	flags.Int("limit", transaction.DefaultPreview, "dates to list")
	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free session start times on a day of the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = isodate.Format(time.Now())
			}
			if !isodate.Valid(date) {
				return fmt.Errorf("date %q must be YYYY-MM-DD", date)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Settings.Get(ctx)
				if err != nil {
					return err
				}
				opts := s.SlotOptions()
				if d, _ := cmd.Flags().GetInt("duration"); d > 0 {
					opts.Duration = d
				}
				items, err := a.Appointments.List(ctx, appointment.Filters{StartDate: date, EndDate: date}, appointment.DefaultSort)
				if err != nil {
					return err
				}
				free, err := calendar.FreeSlots(date, opts, calendar.Busy(date, items))
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"date": date, "duration": opts.Duration, "slots": free})
			})
		},
	}
	cmd.Flags().String("date", "", "day to search, YYYY-MM-DD (default today)")
	cmd.Flags().Int("duration", 0, "session length in minutes (default from settings)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "export [appointments|transactions]",
		Short:     "Write the stored appointments or transactions to an XLSX workbook",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"appointments", "transactions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = args[0] + ".xlsx"
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					data []byte
					err  error
				)
				switch args[0] {
				case "appointments":
					var items []appointment.Appointment
					if items, err = a.Appointments.List(ctx, appointment.Filters{}, appointment.DefaultSort); err == nil {
						data, err = report.AppointmentsXLSX(items)
					}
				default:
					var items []transaction.Transaction
					if items, err = a.Transactions.List(ctx, transaction.Filters{}, transaction.DefaultSort); err == nil {
						data, err = report.TransactionsXLSX(items)
					}
				}
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "output file (default <kind>.xlsx)")
	return cmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().String("view", string(calendar.ViewWeek), "day, week, month or list")
	cmd.Flags().String("date", "", "current date, YYYY-MM-DD (default today)")
}

func viewFlags(cmd *cobra.Command) (calendar.View, time.Time, error) {
	rawView, _ := cmd.Flags().GetString("view")
	view, ok := calendar.ParseView(rawView)
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown view %q", rawView)
	}
	current := time.Now()
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		d, err := isodate.Parse(raw)
		if err != nil {
			return "", time.Time{}, err
		}
		current = d
	}
	return view, current, nil
}

// withApp connects the configured backends for commands that read stored
// data.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.LogLevel, "console", "calendarctl")
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
