package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/hba.go/pkg/daemon"
	"github.com/robotalks/hba.go/pkg/framework"
	"github.com/robotalks/hba.go/pkg/ui/sh"
)

var interactive bool

func init() {
	daemon.SetupFlags()
	sh.SetupFlags()
	flag.BoolVar(&interactive, "i", interactive, "Start the interactive console.")
}

func main() {
	flag.Parse()

	d, err := daemon.NewConfig().NewDaemon()
	if err != nil {
		log.Fatalln(err)
	}
	if err = d.AddFrontEnds(); err != nil {
		d.Close()
		log.Fatalln(err)
	}

	runner := framework.NewRunner().HandleSignals().Go(d)
	if interactive {
		sh.New(d.Server).Run(flag.Args()...)
		runner.Stop()
	}
	if err = runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
