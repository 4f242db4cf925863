package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/atinyakov/trellix/internal/models"
)

const helpText = `Available commands:
  signup <email> <password>
  login <email> <password>
  logout
  boards
  new-board <name> [color]
  board <id>
  new-column <boardId>
  rename-column <boardId> <columnId> <name>
  add-card <boardId> <columnId> <title>
  exit`

// REPL runs the interactive shell loop until in is exhausted or the user
// types exit.
func REPL(ctx context.Context, c *Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "trellix> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(out, "Bye")
			return
		}
		if err := run(ctx, c, out, args); err != nil {
			fmt.Fprintln(out, describe(err))
		}
	}
}

func run(ctx context.Context, c *Client, out io.Writer, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(out, helpText)

	case "signup", "login":
		if len(args) != 3 {
			return usage(args[0] + " <email> <password>")
		}
		auth := c.Login
		if args[0] == "signup" {
			auth = c.Signup
		}
		if err := auth(ctx, args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged in as", args[1])

	case "logout":
		if err := c.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")

	case "boards":
		boards, err := c.Boards(ctx)
		if err != nil {
			return err
		}
		if len(boards) == 0 {
			fmt.Fprintln(out, "No boards yet")
		}
		for _, b := range boards {
			fmt.Fprintf(out, "%d\t%s\t%s\n", b.ID, b.Name, b.Color)
		}

	case "new-board":
		if len(args) < 2 {
			return usage("new-board <name> [color]")
		}
		name, color := args[1], ""
		if len(args) > 2 && strings.HasPrefix(args[len(args)-1], "#") {
			name, color = strings.Join(args[1:len(args)-1], " "), args[len(args)-1]
		} else {
			name = strings.Join(args[1:], " ")
		}
		if err := c.CreateBoard(ctx, name, color); err != nil {
			return err
		}
		fmt.Fprintln(out, "Board created")

	case "board":
		ids, err := parseIDs(args, 1, "board <id>")
		if err != nil {
			return err
		}
		board, err := c.Board(ctx, ids[0])
		if err != nil {
			return err
		}
		printBoard(out, board)

	case "new-column":
		ids, err := parseIDs(args, 1, "new-column <boardId>")
		if err != nil {
			return err
		}
		if err := c.NewColumn(ctx, ids[0]); err != nil {
			return err
		}
		fmt.Fprintln(out, "Column added")

	case "rename-column":
		ids, err := parseIDs(args, 2, "rename-column <boardId> <columnId> <name>")
		if err != nil || len(args) < 4 {
			return usage("rename-column <boardId> <columnId> <name>")
		}
		if err := c.RenameColumn(ctx, ids[0], ids[1], strings.Join(args[3:], " ")); err != nil {
			return err
		}
		fmt.Fprintln(out, "Column renamed")

	case "add-card":
		ids, err := parseIDs(args, 2, "add-card <boardId> <columnId> <title>")
		if err != nil || len(args) < 4 {
			return usage("add-card <boardId> <columnId> <title>")
		}
		if err := c.AddCard(ctx, ids[0], ids[1], strings.Join(args[3:], " ")); err != nil {
			return err
		}
		fmt.Fprintln(out, "Card added")

	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func printBoard(out io.Writer, board *models.Board) {
	fmt.Fprintf(out, "#%d %s (%s)\n", board.ID, board.Name, board.Color)
	for _, col := range board.Columns {
		name := col.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "  [%d] %s\n", col.ID, name)
		for _, item := range col.Items {
			fmt.Fprintf(out, "    - %s\n", item.Title)
		}
	}
}

type usageError string

func (u usageError) Error() string { return "Usage: " + string(u) }

func usage(s string) error { return usageError(s) }

// parseIDs reads n positive ids starting at args[1].
func parseIDs(args []string, n int, syntax string) ([]int64, error) {
	if len(args) < n+1 {
		return nil, usage(syntax)
	}
	ids := make([]int64, n)
	for i := range ids {
		id, err := strconv.ParseInt(args[i+1], 10, 64)
		if err != nil || id <= 0 {
			return nil, usage(syntax)
		}
		ids[i] = id
	}
	return ids, nil
}

func describe(err error) string {
	var verr *models.ValidationError
	var uerr usageError
	switch {
	case errors.As(err, &uerr):
		return uerr.Error()
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Fields))
		for field := range verr.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, verr.Fields[field])
		}
		return strings.Join(parts, " ")
	case errors.Is(err, models.ErrUnauthenticated):
		return "Not logged in. Use 'login' or 'signup' first."
	case errors.Is(err, models.ErrNotFound):
		return "Not found"
	default:
		return "Error: " + err.Error()
	}
}
