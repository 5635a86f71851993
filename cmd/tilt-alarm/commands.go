package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/challenge"
	"github.com/lixenwraith/tilt-alarm/config"
	"github.com/lixenwraith/tilt-alarm/store"
)

const recentWakes = 5

// challengeFlags registers the flags shared by add and ring
func challengeFlags(fs *flag.FlagSet, cfg *config.Config) (kind *string, difficulty *int) {
	kind = fs.String("kind", "quiz", "challenge kind: quiz or maze")
	difficulty = fs.Int("difficulty", cfg.DefaultDifficulty, "challenge difficulty, at least 1")
	return kind, difficulty
}

func cmdAdd(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kindName, difficulty := challengeFlags(fs, cfg)
	label := fs.String("label", "", "free text shown while ringing")
	days := fs.String("days", "daily", "repeat days: daily, weekdays, weekends or a list like mon,wed")
	disabled := fs.Bool("disabled", false, "store without scheduling")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: add needs a time", errUsage)
	}

	hour, minute, err := alarm.ParseClock(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	kind, err := challenge.ParseKind(*kindName)
	if err != nil {
		return err
	}
	repeat, err := alarm.ParseDays(*days)
	if err != nil {
		return err
	}
	d, err := alarm.New(hour, minute, kind, *difficulty, *label)
	if err != nil {
		return err
	}
	d.Days = repeat
	d.Enabled = !*disabled

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Save(ctx, d); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "added %s at %s %s (%s, difficulty %d)\n", d.ID, d.Clock(), d.Days, d.Kind, d.Difficulty)
	return nil
}

// cmdEdit changes only the fields whose flags are given
func cmdEdit(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clock := fs.String("time", "", "new alarm time")
	kindName, difficulty := challengeFlags(fs, cfg)
	label := fs.String("label", "", "free text shown while ringing")
	days := fs.String("days", "", "repeat days")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: edit needs one id", errUsage)
	}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	d, err := db.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if ferr != nil {
			return
		}
		switch f.Name {
		case "time":
			d.Hour, d.Minute, ferr = alarm.ParseClock(*clock)
		case "kind":
			d.Kind, ferr = challenge.ParseKind(*kindName)
		case "difficulty":
			d.Difficulty = *difficulty
		case "label":
			d.Label = *label
		case "days":
			d.Days, ferr = alarm.ParseDays(*days)
		}
	})
	if ferr != nil {
		return ferr
	}
	if err := db.Save(ctx, d); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "updated %s at %s %s (%s, difficulty %d)\n", d.ID, d.Clock(), d.Days, d.Kind, d.Difficulty)
	return nil
}

func cmdList(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	alarms, err := db.List(ctx)
	if err != nil {
		return err
	}
	if len(alarms) == 0 {
		fmt.Fprintln(stdout, "no alarms")
	} else {
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tDAYS\tKIND\tDIFFICULTY\tENABLED\tLABEL")
		for _, d := range alarms {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n", d.ID, d.Clock(), d.Days, d.Kind, d.Difficulty, d.Enabled, d.Label)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	wakes, err := db.Wakes(ctx, recentWakes)
	if err != nil {
		return err
	}
	if len(wakes) > 0 {
		fmt.Fprintln(stdout, "\nrecent wakes:")
		for _, w := range wakes {
			fmt.Fprintf(stdout, "  %s  %s  %s solved in %s\n",
				w.CompletedAt.Local().Format("2006-01-02 15:04"), w.AlarmID, w.Kind, w.Elapsed.Round(time.Second))
		}
	}
	return nil
}

func cmdDelete(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete needs one id", errUsage)
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %s\n", args[0])
	return nil
}

func cmdSetEnabled(ctx context.Context, cfg *config.Config, args []string, enabled bool, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: needs one id", errUsage)
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := db.Get(ctx, args[0])
	if err != nil {
		return err
	}
	d.Enabled = enabled
	if err := db.Save(ctx, d); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s enabled=%t\n", d.ID, d.Enabled)
	return nil
}
