// Package sh provides an ishell backed interactive console of the daemon.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/cmdline"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell   *ishell.Shell
	Backend ui.Server
}

const (
	shellKey = "$shell"
	prompt   = "hba > "
)

var (
	// flags

	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&GetCmd,
		&SetCmd,
		&CatCmd,
		&ListCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print listings in JSON.")
}

// AddCmds registers more commands, used in init funcs.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(backend ui.Server) *Shell {
	s := &Shell{
		Interactive: true,
		OutputJSON:  outputJSON,
		Timeout:     time.Second,

		Shell:   ishell.New(),
		Backend: backend,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Exec runs a command line of the daemon language and prints the reply.
func Exec(c *ishell.Context, line string) error {
	s := ShellFrom(c)
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	reply, sub, err := cmdline.Exec(ctx, s.Backend, line)
	if err != nil {
		c.Err(err)
		return err
	}
	if sub == nil {
		if reply == "" {
			reply = "OK\n"
		}
		c.Print(reply)
		return nil
	}
	defer sub.Close()
	c.Println("press ENTER to stop")
	stopCh := make(chan struct{})
	go func() {
		c.ReadLine()
		close(stopCh)
	}()
	for {
		select {
		case <-stopCh:
			return nil
		case text, ok := <-sub.C():
			if !ok {
				return nil
			}
			c.Printf("%s: %s", sub.Resource().Path(), text)
		}
	}
}

func argsCmd(name string) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		Exec(c, name+" "+strings.Join(c.Args, " "))
	}
}

// Run runs the shell, or executes args as a single command.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// GetCmd reads a resource.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{cmdline.CmdGet},
		Help:    "PLUGIN RESOURCE",
		Func:    argsCmd(cmdline.CmdGet),
	}

	// SetCmd writes a resource.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{cmdline.CmdSet},
		Help:    "PLUGIN RESOURCE VALUE",
		Func:    argsCmd(cmdline.CmdSet),
	}

	// CatCmd streams the broadcasts of a resource.
	CatCmd = ishell.Cmd{
		Name:    "cat",
		Aliases: []string{cmdline.CmdCat},
		Help:    "PLUGIN RESOURCE",
		Func:    argsCmd(cmdline.CmdCat),
	}

	// ListCmd lists plugins and resources.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{cmdline.CmdList, "l"},
		Help:    "[PLUGIN]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if !s.OutputJSON {
				Exec(c, cmdline.CmdList+" "+strings.Join(c.Args, " "))
				return
			}
			var name string
			if len(c.Args) > 0 {
				name = c.Args[0]
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
			defer cancel()
			plugins, err := s.Backend.List(ctx, name)
			if err != nil {
				c.Err(err)
				return
			}
			if len(plugins) == 0 {
				plugins = []ui.PluginInfo{}
			}
			out, err := json.Marshal(plugins)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(out))
		},
	}
)
