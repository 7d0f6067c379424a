package cmd

import (
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("restir")

// setupLogging applies the global verbosity flags. The level sticks even when
// the server later redirects log output to its console stream.
func setupLogging(ctx *cli.Context) error {
	level, err := verbosity(ctx.GlobalString("log-level"), ctx.GlobalBool("v"), ctx.GlobalBool("vv"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// verbosity resolves the logging flags; -v and -vv win over --log-level
func verbosity(name string, v, vv bool) (log.Level, error) {
	switch {
	case vv:
		return log.Debug, nil
	case v:
		return log.Info, nil
	case name == "":
		return log.Notice, nil
	}
	return log.ParseLevel(name)
}
