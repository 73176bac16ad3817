package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	"github.com/trezcool/dailies/storage/database"
)

var (
	gooseFunc = database.Goose // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations only apply to the postgres engine")
)

type commandLine struct {
	db       *sql.DB // nil unless the postgres engine is configured
	dirSvc   *directory.Service
	dailySvc *daily.Service
	in       io.Reader // defaults to os.Stdin
	out      io.Writer
}

// run executes the command line `args`, program name included.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Maintain the dailies stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.migrateCmd(), cli.rosterCmd(), cli.dailiesCmd())
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, redo, version...) against the embedded migrations",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			if cli.db == nil {
				return errNoSQL
			}
			return errors.Cause(gooseFunc(cmd.Context(), cli.db, args[0], args[1:]...))
		},
	}
}

func (cli *commandLine) rosterCmd() *cobra.Command {
	roster := &cobra.Command{
		Use:   "roster",
		Short: "Manage the permitted emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load roster entries from a CSV file of email,group,cohort (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := cli.open(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := cli.dirSvc.Import(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries imported\n", n)
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add or update one roster entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, _ := cmd.Flags().GetString("group")
			cohort, _ := cmd.Flags().GetString("cohort")
			if _, err := cli.dirSvc.Add(cmd.Context(), directory.Entry{Email: args[0], Group: group, Cohort: cohort}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s added\n", core.CleanString(args[0]))
			return nil
		},
	}
	addCmd.Flags().String("group", "", "the entry's group")
	addCmd.Flags().String("cohort", "", "the entry's cohort")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List roster entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter directory.QueryFilter
			filter.Group, _ = cmd.Flags().GetString("group")
			filter.Cohort, _ = cmd.Flags().GetString("cohort")
			entries, err := cli.dirSvc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tGROUP\tCOHORT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Email, e.Group, e.Cohort)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().String("group", "", "filter by group")
	listCmd.Flags().String("cohort", "", "filter by cohort")

	roster.AddCommand(importCmd, addCmd, listCmd)
	return roster
}

func (cli *commandLine) dailiesCmd() *cobra.Command {
	dailies := &cobra.Command{
		Use:   "dailies",
		Short: "Inspect submitted dailies",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write dailies as CSV, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter daily.QueryFilter
			if emails, _ := cmd.Flags().GetStringSlice("email"); len(emails) > 0 {
				filter.Emails = emails
			}
			for flag, d := range map[string]*core.Date{"from": &filter.Range.From, "to": &filter.Range.To} {
				val, _ := cmd.Flags().GetString(flag)
				parsed, err := core.ParseDate(val)
				if err != nil {
					return errors.Wrapf(err, "--%s", flag)
				}
				*d = parsed
			}

			recs, err := cli.dailySvc.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			_ = w.Write([]string{"date", "email", "task_description", "progress_status", "obstacle_description", "next_steps", "additional_comments", "created_at"})
			for _, rec := range recs {
				_ = w.Write([]string{
					rec.Date.String(),
					rec.Email,
					rec.TaskDescription,
					string(rec.Progress),
					rec.ObstacleDescription,
					rec.NextSteps,
					rec.AdditionalComments,
					rec.CreatedAt.Format(time.RFC3339),
				})
			}
			w.Flush()
			return w.Error()
		},
	}
	exportCmd.Flags().StringSlice("email", nil, "only these emails (repeatable)")
	exportCmd.Flags().String("from", "", "first date, YYYY-MM-DD")
	exportCmd.Flags().String("to", "", "last date, YYYY-MM-DD")

	dailies.AddCommand(exportCmd)
	return dailies
}

func (cli *commandLine) open(name string) (io.Reader, func(), error) {
	if name == "-" {
		if cli.in != nil {
			return cli.in, func() {}, nil
		}
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening roster file")
	}
	return f, func() { _ = f.Close() }, nil
}
