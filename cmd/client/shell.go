package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/QuoteKeeper/internal/client/prompt"
	"github.com/atinyakov/QuoteKeeper/internal/client/syncer"
	"github.com/spf13/cobra"
)

const shellHelp = `Available commands:
  list [flags] [words]  show quotes; --sort newest|oldest|alphabetical,
                        --category <name>, --favorites, words search text
  add                   add a quote
  edit <id>             edit a quote
  fav <id>              toggle favorite
  delete <id>...        delete quotes
  pending               show quotes not yet on the server
  sync                  push pending quotes now
  status                show connectivity
  categories            show category counts
  exit                  leave the shell`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell with background sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go cur.monitor.Run(ctx)
		repl(ctx, cmd, bufio.NewScanner(cmd.InOrStdin()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// repl runs the interactive loop until exit or end of input.
func repl(ctx context.Context, cmd *cobra.Command, scanner *bufio.Scanner) {
	out := cmd.OutOrStdout()
	p := prompt.New(scanner, out)

	for {
		st := cur.monitor.Status()
		state := "offline"
		if st.Online {
			state = "online"
		}
		fmt.Fprintf(out, "quotekeeper [%s, %d pending]> ", state, st.Pending)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(out, "Bye")
			return
		}
		if err := dispatch(ctx, cmd, p, args); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

func dispatch(ctx context.Context, cmd *cobra.Command, p *prompt.Prompter, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "help":
		fmt.Fprintln(out, shellHelp)
	case "list":
		f, err := parseListArgs(args[1:])
		if err != nil {
			return err
		}
		return listNotes(ctx, cmd, f)
	case "add":
		in, err := p.ForNote()
		if err != nil {
			return err
		}
		return addNote(ctx, cmd, in)
	case "edit":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		in, err := p.EditNote()
		if err != nil {
			return err
		}
		return editNote(ctx, cmd, syncer.LocalRef(id), in)
	case "fav":
		id, err := oneID(args)
		if err != nil {
			return err
		}
		return toggleFavorite(ctx, cmd, syncer.LocalRef(id))
	case "delete":
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "Usage: delete <id>...")
			return nil
		}
		if len(ids) > 1 && !p.Confirm(fmt.Sprintf("Delete %d quotes?", len(ids))) {
			return nil
		}
		return deleteNotes(ctx, cmd, ids)
	case "pending":
		return pendingCmd.RunE(cmd, nil)
	case "sync":
		report, err := cur.monitor.SyncNow(ctx)
		if err != nil {
			return err
		}
		printReport(out, report)
	case "status":
		return showStatus(ctx, out)
	case "categories":
		return categoriesCmd.RunE(cmd, nil)
	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func oneID(args []string) (int64, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: %s <id>", args[0])
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}
