package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/tilt-alarm/config"
)

var errUsage = errors.New("usage")

const usage = `usage: tilt-alarm [-config file] <command> [flags] [args]

commands:
  add [-kind quiz|maze] [-difficulty n] [-label text] [-days set] [-disabled] <time>
  edit [-time t] [-kind quiz|maze] [-difficulty n] [-label text] [-days set] <id>
  list
  delete <id>
  enable <id>
  disable <id>
  ring [-kind quiz|maze] [-difficulty n] [-mute]   ring now, without scheduling
  run [-mute]                                      ring stored alarms on time

days: daily, weekdays, weekends or a list such as mon,wed,fri
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("tilt-alarm", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "YAML config file, default $"+config.EnvFile)
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "add":
		return cmdAdd(ctx, cfg, cmdArgs, stdout)
	case "edit":
		return cmdEdit(ctx, cfg, cmdArgs, stdout)
	case "list":
		return cmdList(ctx, cfg, stdout)
	case "delete":
		return cmdDelete(ctx, cfg, cmdArgs, stdout)
	case "enable", "disable":
		return cmdSetEnabled(ctx, cfg, cmdArgs, cmd == "enable", stdout)
	case "ring":
		return cmdRing(ctx, cfg, cmdArgs)
	case "run":
		return cmdRun(ctx, cfg, cmdArgs)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}
