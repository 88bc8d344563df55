package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/client/prompt"
	"github.com/atinyakov/QuoteKeeper/internal/client/syncer"
	"github.com/atinyakov/QuoteKeeper/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	addAuthor   string
	addCategory string
	byServerID  bool
)

var listOpts listOptions

var listCmd = &cobra.Command{
	Use:   "list [search words]",
	Short: "List quotes, refreshing from the server when reachable",
	Long: `List quotes from the local store, refreshed from the server when it is reachable.
Filters run locally, so they also work offline. Any words after the flags are
used as the search text.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := listOpts.filter(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cur.connect(ctx)
		return listNotes(ctx, cmd, f)
	},
}

type listOptions struct {
	sort      string
	search    string
	category  string
	favorites bool
}

func (o *listOptions) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.sort, "sort", "s", string(models.SortNewest), "order: newest, oldest or alphabetical")
	fs.StringVarP(&o.search, "search", "q", "", "only quotes whose text or author contains this")
	fs.StringVarP(&o.category, "category", "c", "", "only quotes in this category")
	fs.BoolVarP(&o.favorites, "favorites", "f", false, "only favorite quotes")
}

func (o listOptions) filter(words []string) (models.NoteFilter, error) {
	sort := models.SortOrder(o.sort)
	switch sort {
	case models.SortNewest, models.SortOldest, models.SortAlphabetical:
	default:
		return models.NoteFilter{}, fmt.Errorf("unknown sort %q: use newest, oldest or alphabetical", o.sort)
	}
	search := o.search
	if len(words) > 0 {
		if search != "" {
			return models.NoteFilter{}, fmt.Errorf("give the search either with --search or as words, not both")
		}
		search = strings.Join(words, " ")
	}
	return models.NoteFilter{
		Sort:          sort,
		Search:        strings.TrimSpace(search),
		Category:      o.category,
		FavoritesOnly: o.favorites,
	}, nil
}

// parseListArgs reads the list flags from shell words.
func parseListArgs(args []string) (models.NoteFilter, error) {
	var o listOptions
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o.bind(fs)
	if err := fs.Parse(args); err != nil {
		return models.NoteFilter{}, err
	}
	return o.filter(fs.Args())
}

var addCmd = &cobra.Command{
	Use:   "add [quote]",
	Short: "Add a quote; prompts for the fields when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		in := syncer.NewNote{Author: addAuthor, Category: addCategory}
		if len(args) == 1 {
			in.Content = args[0]
		} else {
			var err error
			in, err = prompt.NewFromReader(cmd.InOrStdin(), cmd.OutOrStdout()).ForNote()
			if err != nil {
				return err
			}
		}
		cur.connect(ctx)
		return addNote(ctx, cmd, in)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a quote interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		in, err := prompt.NewFromReader(cmd.InOrStdin(), cmd.OutOrStdout()).EditNote()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cur.connect(ctx)
		return editNote(ctx, cmd, ref(ids[0]), in)
	},
}

var favCmd = &cobra.Command{
	Use:   "fav <id>",
	Short: "Toggle the favorite flag of a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cur.connect(ctx)
		return toggleFavorite(ctx, cmd, ref(ids[0]))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		cur.connect(ctx)
		return deleteNotes(ctx, cmd, ids)
	},
}

func init() {
	listOpts.bind(listCmd.Flags())
	addCmd.Flags().StringVarP(&addAuthor, "author", "a", "", "author of the quote")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category of the quote")
	for _, c := range []*cobra.Command{editCmd, favCmd, deleteCmd} {
		c.Flags().BoolVar(&byServerID, "server-id", false, "interpret <id> as a server id")
	}
	rootCmd.AddCommand(listCmd, addCmd, editCmd, favCmd, deleteCmd)
}

func ref(id int64) syncer.Ref {
	if byServerID {
		return syncer.ServerRef(id)
	}
	return syncer.LocalRef(id)
}

func listNotes(ctx context.Context, cmd *cobra.Command, f models.NoteFilter) error {
	notes, err := cur.engine.Find(ctx, f)
	if err != nil {
		return err
	}
	if len(notes) == 0 && f != (models.NoteFilter{Sort: f.Sort}) {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching quotes.")
		return nil
	}
	printNotes(cmd.OutOrStdout(), notes)
	return nil
}

func addNote(ctx context.Context, cmd *cobra.Command, in syncer.NewNote) error {
	id, err := cur.engine.Create(ctx, in)
	if err != nil {
		return err
	}
	note, err := cur.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if note == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Quote %d added\n", id)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Quote %d added (%s)\n", id, note.State)
	return nil
}

func editNote(ctx context.Context, cmd *cobra.Command, r syncer.Ref, in syncer.EditNote) error {
	if err := cur.engine.Edit(ctx, r, in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Quote %s updated\n", r)
	return nil
}

func toggleFavorite(ctx context.Context, cmd *cobra.Command, r syncer.Ref) error {
	fav, err := cur.engine.ToggleFavorite(ctx, r)
	if err != nil {
		return err
	}
	if fav {
		fmt.Fprintf(cmd.OutOrStdout(), "Quote %s marked as favorite\n", r)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Quote %s unmarked as favorite\n", r)
	}
	return nil
}

func deleteNotes(ctx context.Context, cmd *cobra.Command, ids []int64) error {
	if len(ids) == 1 {
		if err := cur.engine.Delete(ctx, ref(ids[0])); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Quote deleted")
		return nil
	}
	if byServerID {
		return fmt.Errorf("bulk delete takes local ids only")
	}
	if err := cur.engine.DeleteMany(ctx, ids); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "The server rejected the deletion; your quotes were restored.")
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d quotes deleted\n", len(ids))
	return nil
}
