package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/tastytax/tastytax/cmd"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	completion := &complete.Command{Sub: map[string]*complete.Command{}}
	for _, c := range cmd.Commands() {
		commander.Register(c, "")
		completion.Sub[c.Name()] = &complete.Command{}
	}
	commander.Register(commander.HelpCommand(), "help")
	completion.Complete(path.Base(os.Args[0]))

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
