package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"grimm.is/netgen/cmd"
	"grimm.is/netgen/internal/brand"
)

func main() {
	if filepath.Base(os.Args[0]) == brand.GeneratorName {
		exit(cmd.RunGenerator(brand.ConfigPath(), os.Args[1:]))
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(cmd.ExitFailure)
	}

	switch os.Args[1] {
	case "generate":
		fs := flag.NewFlagSet("generate", flag.ExitOnError)
		opts := commonFlags(fs)
		genDir := fs.String("generator-dir", "", "Directory for service enablement links")
		fs.Parse(os.Args[2:])
		exit(cmd.RunGenerate(os.Stdout, cmd.GenerateOptions{Options: *opts, GeneratorDir: *genDir}))

	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		opts := commonFlags(fs)
		fs.Parse(os.Args[2:])
		exit(cmd.RunGet(os.Stdout, *opts, fs.Arg(0)))

	case "emit":
		fs := flag.NewFlagSet("emit", flag.ExitOnError)
		opts := commonFlags(fs)
		id := fs.String("id", "", "Emit only this definition")
		hint := fs.String("hint", "", "File name for the full document")
		fs.Parse(os.Args[2:])
		exit(cmd.RunEmit(os.Stdout, *opts, *id, *hint))

	case "check":
		fs := flag.NewFlagSet("check", flag.ExitOnError)
		opts := commonFlags(fs)
		verbose := fs.Bool("v", false, "List every definition")
		fs.Parse(os.Args[2:])
		exit(cmd.RunCheck(os.Stdout, *opts, *verbose))

	case "diff":
		fs := flag.NewFlagSet("diff", flag.ExitOnError)
		opts := commonFlags(fs)
		fs.Parse(os.Args[2:])
		exit(cmd.RunDiff(os.Stdout, *opts))

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		opts := commonFlags(fs)
		genDir := fs.String("generator-dir", "", "Directory for service enablement links")
		debounce := fs.Duration("debounce", cmd.DefaultDebounce, "Quiet period before regenerating")
		fs.Parse(os.Args[2:])

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		exit(cmd.RunWatch(ctx, os.Stdout, cmd.WatchOptions{
			GenerateOptions: cmd.GenerateOptions{Options: *opts, GeneratorDir: *genDir},
			Debounce:        *debounce,
		}))

	case "delete":
		fs := flag.NewFlagSet("delete", flag.ExitOnError)
		opts := commonFlags(fs)
		fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "usage: %s delete <id>\n", brand.BinaryName)
			os.Exit(cmd.ExitFailure)
		}
		exit(cmd.RunDelete(os.Stdout, *opts, fs.Arg(0)))

	case "info", "version":
		exit(cmd.RunInfo(os.Stdout))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(cmd.ExitFailure)
	}
}

func commonFlags(fs *flag.FlagSet) *cmd.Options {
	opts := &cmd.Options{}
	fs.StringVar(&opts.ConfigFile, "config", brand.ConfigPath(), "Configuration file")
	fs.StringVar(&opts.ConfigFile, "c", brand.ConfigPath(), "Configuration file (short)")
	fs.StringVar(&opts.RootDir, "root-dir", "", "Generate into this root instead of the configured one")
	return opts
}

func exit(err error) {
	if err != nil {
		cmd.Printer.Fprintf(os.Stderr, "%s: %v\n", brand.BinaryName, err)
	}
	os.Exit(cmd.ExitCode(err))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s - %s

Usage:
  %[1]s generate [--root-dir DIR] [--generator-dir DIR]
  %[1]s get [id]
  %[1]s emit [--id ID] [--hint NAME]
  %[1]s check [-v]
  %[1]s diff
  %[1]s watch [--debounce 500ms]
  %[1]s delete <id>
  %[1]s info

Every command accepts --config FILE (default %[3]s) and --root-dir DIR.
`, brand.BinaryName, brand.Get().Description, brand.ConfigPath())
}
