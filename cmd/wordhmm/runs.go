package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ieee0824/wordhmm-go/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [RUN-ID]",
	Short: "List recorded training runs, or show one run in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().String("db", "wordhmm.db", "SQLite file written by train --db")
	runsCmd.Flags().Int("limit", 20, "number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("db")
	db, err := initDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	st, err := store.Open(db)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.Runs(ctx, limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tWORDS\tLOGLIK")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.StartedAt.Format(time.DateTime), r.Status, r.Words, loglik(r.LogLikelihood))
		}
		return nil
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	r, err := st.Run(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run\t%s\nstatus\t%s\nwords\t%d\nloglik\t%s\n\n", r.ID, r.Status, r.Words, loglik(r.LogLikelihood))

	iters, err := st.Iterations(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ITER\tLOGLIK\tIMPROVEMENT\tHELDOUT\tSKIPPED")
	for _, it := range iters {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%d\n", it.Iteration, it.LogLikelihood, it.Improvement, it.HeldOut, it.Skipped)
	}

	words, err := st.WordStates(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nWORD\tSTATE\tERROR")
	for _, ws := range words {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ws.Word, ws.State, ws.Error)
	}
	return nil
}

func loglik(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
