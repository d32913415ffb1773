package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-docmap/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args[1:], DefaultEnv()))
}

// runMain drives one CLI invocation and returns its exit code.
func runMain(args []string, env *Environment) int {
	flags, inputs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	switch {
	case flags.version:
		fmt.Fprintf(env.Stdout, "docmap %s\n", Version)
		return ExitSuccess
	case flags.doctor:
		return runDoctorCmd(flags.jsonOut, env)
	case flags.initConfig != "":
		return runInitConfig(flags.initConfig, env)
	}

	// Error ignored: maxprocs.Set only fails if the GOMAXPROCS env var is
	// invalid, in which case runtime defaults apply and the program
	// continues safely.
	if flags.common.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(env.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := runExport(ctx, flags, inputs, env); err != nil {
		fmt.Fprintf(env.Stderr, "%v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runInitConfig writes a starter config file.
func runInitConfig(path string, env *Environment) int {
	if err := config.Write(path); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	fmt.Fprintf(env.Stdout, "Created %s\n", path)
	return ExitSuccess
}
