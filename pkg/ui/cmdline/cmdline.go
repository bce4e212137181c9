// Package cmdline implements the text command language of the daemon:
//
//	hbaget <plugin> <resource>
//	hbaset <plugin> <resource> <value>
//	hbacat <plugin> <resource>
//	hbalist [plugin]
package cmdline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robotalks/hba.go/pkg/ui"
)

// Command names.
const (
	CmdGet  = "hbaget"
	CmdSet  = "hbaset"
	CmdCat  = "hbacat"
	CmdList = "hbalist"
)

// ErrEmpty is returned for a blank line.
var ErrEmpty = errors.New("empty command")

// UsageError reports a malformed command line.
type UsageError struct {
	Cmd   string
	Usage string
}

// Error implements error.
func (e *UsageError) Error() string {
	if e.Usage == "" {
		return fmt.Sprintf("unknown command %q", e.Cmd)
	}
	return fmt.Sprintf("usage: %s %s", e.Cmd, e.Usage)
}

type command struct {
	usage   string
	minArgs int
	maxArgs int
	exec    func(ctx context.Context, srv ui.Server, args []string) (string, *ui.Subscription, error)
}

var commands = map[string]*command{
	CmdGet: {
		usage: "<plugin> <resource>", minArgs: 2, maxArgs: 2,
		exec: func(ctx context.Context, srv ui.Server, args []string) (string, *ui.Subscription, error) {
			reply, err := srv.Get(ctx, args[0], args[1])
			return reply, nil, err
		},
	},
	CmdSet: {
		usage: "<plugin> <resource> <value>", minArgs: 3, maxArgs: -1,
		exec: func(ctx context.Context, srv ui.Server, args []string) (string, *ui.Subscription, error) {
			reply, err := srv.Set(ctx, args[0], args[1], strings.Join(args[2:], " "))
			return reply, nil, err
		},
	},
	CmdCat: {
		usage: "<plugin> <resource>", minArgs: 2, maxArgs: 2,
		exec: func(ctx context.Context, srv ui.Server, args []string) (string, *ui.Subscription, error) {
			sub, err := srv.Cat(ctx, args[0], args[1])
			return "", sub, err
		},
	},
	CmdList: {
		usage: "[plugin]", minArgs: 0, maxArgs: 1,
		exec: func(ctx context.Context, srv ui.Server, args []string) (string, *ui.Subscription, error) {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			plugins, err := srv.List(ctx, name)
			if err != nil {
				return "", nil, err
			}
			return FormatList(plugins), nil, nil
		},
	},
}

// Exec parses and executes one command line. For hbacat the returned
// subscription streams the broadcasts; the caller must close it.
func Exec(ctx context.Context, srv ui.Server, line string) (string, *ui.Subscription, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, ErrEmpty
	}
	name, args := fields[0], fields[1:]
	cmd := commands[name]
	if cmd == nil {
		return "", nil, &UsageError{Cmd: name}
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return "", nil, &UsageError{Cmd: name, Usage: cmd.usage}
	}
	return cmd.exec(ctx, srv, args)
}

// Usage lists the supported commands.
func Usage() string {
	var w bytes.Buffer
	for _, name := range []string{CmdGet, CmdSet, CmdCat, CmdList} {
		fmt.Fprintf(&w, "%s %s\n", name, commands[name].usage)
	}
	return w.String()
}

// FormatList prints plugins and their resources.
func FormatList(plugins []ui.PluginInfo) string {
	var w bytes.Buffer
	for _, p := range plugins {
		fmt.Fprintf(&w, "%d %s", p.Slot, p.Name)
		if p.Desc != "" {
			fmt.Fprintf(&w, ": %s", p.Desc)
		}
		w.WriteByte('\n')
		for _, rsc := range p.Resources {
			fmt.Fprintf(&w, "    %-12s %s\n", rsc.Name, rsc.Caps)
		}
	}
	return w.String()
}

// FormatError prints an error as a reply line.
func FormatError(err error) string {
	return fmt.Sprintf("ERROR: %v\n", err)
}
