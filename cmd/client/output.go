package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/QuoteKeeper/internal/client/connectivity"
	"github.com/atinyakov/QuoteKeeper/internal/models"
)

const previewLen = 60

func printNotes(w io.Writer, notes []models.LocalNote) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No quotes yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tFAV\tCATEGORY\tAUTHOR\tQUOTE")
	for _, n := range notes {
		fav := ""
		if n.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", n.LocalID, n.State, fav, n.Category, n.Author, preview(n.Content))
	}
	_ = tw.Flush()
}

func printStatus(w io.Writer, st connectivity.Status) {
	conn := "offline"
	if st.Online {
		conn = "online"
	}
	fmt.Fprintf(w, "%s, %d pending\n", conn, st.Pending)
}

func printLocalCounts(w io.Writer, total, favorites int) {
	fmt.Fprintf(w, "%d quotes stored locally, %d favorites\n", total, favorites)
}

func printReport(w io.Writer, r models.SyncReport) {
	fmt.Fprintf(w, "Synced %d of %d pending notes", r.Synced, r.Attempted)
	if r.Failed > 0 {
		fmt.Fprintf(w, " (%d still pending)", r.Failed)
	}
	fmt.Fprintln(w)
}

func printCategories(w io.Writer, sum models.CategorySummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "All\t%d\n", sum.All)
	fmt.Fprintf(tw, "Favorites\t%d\n", sum.Favorites)
	for _, c := range sum.Categories {
		fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
	}
	_ = tw.Flush()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > previewLen {
		return string(r[:previewLen-3]) + "..."
	}
	return s
}

// parseIDs reads local note ids from args.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
