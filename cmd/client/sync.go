package main

import (
	"context"
	"fmt"
	"io"

	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending quotes and refresh the local mirror",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// Probe without the automatic replay so the report below covers the push.
		cur.monitor.Reachable(ctx)
		report, err := cur.monitor.SyncNow(ctx)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if err := cur.engine.Reconcile(ctx); err != nil {
			return err
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and the number of pending quotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cur.connect(ctx)
		return showStatus(ctx, cmd.OutOrStdout())
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List quotes that have not reached the server yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := cur.store.ListByState(cmd.Context(), models.Pending)
		if err != nil {
			return err
		}
		printNotes(cmd.OutOrStdout(), notes)
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show quote counts per category",
	Long: `Show quote counts per category from the server. While the server is
unreachable the counts come from the local store and include pending quotes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cur.connect(ctx)
		if cur.monitor.Online() {
			sum, err := cur.remote.Categories(ctx)
			if err == nil {
				printCategories(cmd.OutOrStdout(), sum)
				return nil
			}
			cur.log.Warn("remote categories failed, using local counts", zap.Error(err))
		}
		sum, err := cur.store.Categories(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Server unreachable, showing local counts.")
		printCategories(cmd.OutOrStdout(), sum)
		return nil
	},
}

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the local store and reload it from the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cur.connect(ctx)

		pending, err := cur.store.CountByState(ctx, models.Pending)
		if err != nil {
			return err
		}
		if pending > 0 && !resetForce {
			return fmt.Errorf("%d quotes are not on the server yet: sync first or pass --force to discard them", pending)
		}
		if err := cur.store.Clear(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !cur.monitor.Online() {
			fmt.Fprintln(out, "Local store cleared. The server is unreachable; quotes will reload on the next list.")
			return nil
		}
		notes, err := cur.engine.Notes(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Local store cleared, %d quotes reloaded from the server\n", len(notes))
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "discard quotes that are still pending")
	rootCmd.AddCommand(syncCmd, statusCmd, pendingCmd, categoriesCmd, resetCmd)
}

// showStatus prints connectivity together with what the local store holds.
func showStatus(ctx context.Context, w io.Writer) error {
	total, err := cur.store.CountWhere(ctx, func(models.LocalNote) bool { return true })
	if err != nil {
		return err
	}
	favorites, err := cur.store.CountWhere(ctx, func(n models.LocalNote) bool { return n.IsFavorite })
	if err != nil {
		return err
	}
	printStatus(w, cur.monitor.Status())
	printLocalCounts(w, total, favorites)
	return nil
}
