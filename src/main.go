package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"pbrc/src/backend"
	"pbrc/src/util"
)

// run parses command line arguments and drives the compiler pipeline.
func run() error {
	opt, err := util.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if opt.Src == "" {
		// A cobra subcommand other than "build" (help, completion) or the
		// --version flag already ran and printed its own output.
		return nil
	}
	return backend.GenerateAssembler(opt)
}

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("pbrc failed")
		os.Exit(1)
	}
}
