package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agriai/agrisync/internal/common"
)

// printlnFn is a test seam for REPL chrome. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	History(ctx context.Context) error
	DiagnoseInteractive(ctx context.Context) error
	Show(ctx context.Context, localID int64) error
	Delete(ctx context.Context, localID int64) error
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
}

const replHelp = "Available commands: (l)ist, diagnose, show <id>, delete <id>, status, login, logout, exit"

// runREPL reads one command per line from r until EOF, "exit" or "quit".
//
// Handler errors are reported through common.UserMessage and never end the
// loop. The prompt is rebuilt from statusFn before every read so it follows
// connectivity and session changes.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("agrisync %s> ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(replHelp)
		case "l", "list", "history":
			cmdErr = a.History(ctx)
		case "diagnose":
			cmdErr = a.DiagnoseInteractive(ctx)
		case "show", "delete":
			id, ok := parseID(args)
			if !ok {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			if cmd == "show" {
				cmdErr = a.Show(ctx, id)
			} else {
				cmdErr = a.Delete(ctx, id)
			}
		case "status":
			cmdErr = a.Status(ctx)
		case "login":
			cmdErr = a.Login(ctx, "")
		case "logout":
			cmdErr = a.Logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if cmdErr != nil {
			printlnFn("Error:", common.UserMessage(cmdErr))
		}
		if err != nil {
			return
		}
	}
}

func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RunREPL blocks in the interactive loop until the user exits.
func (a *App) RunREPL(ctx context.Context) {
	printlnFn("Welcome to agrisync (type 'help' for commands)")
	runREPL(ctx, a, a.promptStatus, a.reader)
}
