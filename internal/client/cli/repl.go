package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a recording stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Unlock(ctx context.Context, args []string) error
	SyncAll(ctx context.Context) error
	SyncScans(ctx context.Context) error
	Pending(ctx context.Context) error
	Scan(ctx context.Context) error
	Retry(ctx context.Context, args []string) error
	Repair(ctx context.Context, args []string) error
	Recap(ctx context.Context, args []string) error
	Browse(ctx context.Context, args []string) error
	Campaigns(ctx context.Context) error
	Groups(ctx context.Context, args []string) error
	Report(ctx context.Context, args []string) error
	Labels(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: login, syncall, campaigns, groups, browse, unlock, status, exit"
	helpLoggedIn  = "Available commands: syncall, syncscans, campaigns, groups, browse, unlock, scan, pending, " +
		"retry, repair, recap, report, labels, status, logout, exit"
)

// runREPL reads one command per line from r and dispatches it to a. The loop
// ends on EOF or "exit"/"quit". Command errors are printed and do not stop
// the loop.
//
//	help                      list commands
//	login | logout            open or close the API session
//	unlock <group>            unlock a counting group with its PIN
//	syncall                   refresh the offline reference data
//	syncscans                 upload pending scans
//	scan                      capture a scan for the unlocked group
//	pending                   list scans still waiting for upload
//	retry <scan> [noimg]      upload one scan, optionally without images
//	repair <scan>             upload the images of a scan sent without them
//	recap [remote] [scoped]   reconcile scans against expected articles
//	report <file> [remote] [scoped]
//	                          write the recap as PDF
//	labels <file> [parent]    write location barcode labels as PDF
//	browse [location]         list child locations
//	campaigns | groups [c]    list cached campaigns / groups
//	status                    show connectivity and sync state
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("inv %s > ", statusFn()))

		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx, args)
		case "syncall":
			cmdErr = a.SyncAll(ctx)
		case "syncscans":
			cmdErr = a.SyncScans(ctx)
		case "scan":
			cmdErr = a.Scan(ctx)
		case "pending":
			cmdErr = a.Pending(ctx)
		case "retry":
			cmdErr = a.Retry(ctx, args)
		case "repair":
			cmdErr = a.Repair(ctx, args)
		case "recap":
			cmdErr = a.Recap(ctx, args)
		case "report":
			cmdErr = a.Report(ctx, args)
		case "labels":
			cmdErr = a.Labels(ctx, args)
		case "browse":
			cmdErr = a.Browse(ctx, args)
		case "campaigns":
			cmdErr = a.Campaigns(ctx)
		case "groups":
			cmdErr = a.Groups(ctx, args)
		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}

		if err != nil {
			return
		}
	}
}
