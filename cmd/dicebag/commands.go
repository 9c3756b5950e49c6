package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dicebag/internal/command"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
	"github.com/cory-johannsen/dicebag/internal/session"
)

var errUsage = errors.New("invalid usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// newFlagSet returns a flag set that reports errors instead of exiting and
// stays quiet so the shell can reuse it.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// dispatch resolves cmd by name or alias and runs it against the open session.
func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	c, ok := a.commands.Resolve(cmd)
	if !ok {
		return usageErr("unknown command %q", cmd)
	}
	switch c.Handler {
	case command.HandlerRoll:
		return a.cmdRoll(ctx, args)
	case command.HandlerPreset:
		return a.cmdPreset(ctx, args)
	case command.HandlerLog:
		return a.cmdLog(args)
	case command.HandlerClear:
		return a.cmdClear(ctx, args)
	case command.HandlerPresets:
		return a.cmdPresets(args)
	case command.HandlerAddPreset:
		return a.cmdAddPreset(ctx, args)
	case command.HandlerRemovePreset:
		return a.cmdRemovePreset(ctx, args)
	case command.HandlerFeature:
		return a.cmdFeature(ctx, args)
	case command.HandlerUnfeature:
		return a.cmdUnfeature(ctx, args)
	case command.HandlerReorder:
		return a.cmdReorder(ctx, args)
	case command.HandlerCustomDie:
		return a.cmdCustomDie(ctx, args)
	case command.HandlerHelp:
		fmt.Fprint(a.out, a.commands.Help(command.HandlerQuit))
		return nil
	default:
		return usageErr("%s is only available in the shell", c.Name)
	}
}

// saved reports a store failure as a warning; the change itself succeeded.
func (a *app) saved(err error) error {
	if errors.Is(err, session.ErrNotSaved) {
		fmt.Fprintf(a.out, "warning: %v\n", err)
		return nil
	}
	return err
}

func (a *app) printRoll(entry rolllog.LoggedRoll, verbose bool) {
	fmt.Fprintln(a.out, a.render.Entry(entry))
	if verbose {
		fmt.Fprint(a.out, a.render.Breakdown(entry.Outcome))
	}
}

func (a *app) cmdRoll(ctx context.Context, args []string) error {
	fs := newFlagSet("roll")
	label := fs.String("label", "", "label shown in the log")
	category := fs.String("category", "", "roll category")
	note := fs.String("note", "", "free-form note")
	verbose := fs.Bool("v", false, "print every die")
	if err := fs.Parse(args); err != nil {
		return usageErr("roll: %v", err)
	}
	if fs.NArg() == 0 {
		return usageErr("roll: missing notation")
	}
	entry, err := a.sess.RollNotation(ctx, strings.Join(fs.Args(), ""), *label, *category, *note)
	if err = a.saved(err); err != nil {
		return err
	}
	a.printRoll(entry, *verbose)
	return nil
}

func (a *app) cmdPreset(ctx context.Context, args []string) error {
	fs := newFlagSet("preset")
	note := fs.String("note", "", "free-form note")
	verbose := fs.Bool("v", false, "print every die")
	if err := fs.Parse(args); err != nil {
		return usageErr("preset: %v", err)
	}
	if fs.NArg() != 1 {
		return usageErr("preset: expected one preset id")
	}
	entry, err := a.sess.RollPreset(ctx, fs.Arg(0), *note)
	if err = a.saved(err); err != nil {
		return err
	}
	a.printRoll(entry, *verbose)
	return nil
}

func (a *app) cmdLog(args []string) error {
	fs := newFlagSet("log")
	n := fs.Int("n", 0, "show at most n entries (0 for all)")
	category := fs.String("category", "", "only show this category")
	verbose := fs.Bool("v", false, "print every die")
	if err := fs.Parse(args); err != nil {
		return usageErr("log: %v", err)
	}
	if fs.NArg() != 0 || *n < 0 {
		return usageErr("log: unexpected arguments")
	}

	entries := a.sess.Log().List()
	if *category != "" {
		c, err := rolllog.ParseCategory(*category)
		if err != nil {
			return err
		}
		entries = a.sess.Log().Filter(c)
	}
	if *n > 0 && len(entries) > *n {
		entries = entries[:*n]
	}
	if !*verbose || len(entries) == 0 {
		fmt.Fprint(a.out, a.render.Log(entries))
		return nil
	}
	for _, e := range entries {
		a.printRoll(e, true)
	}
	return nil
}

func (a *app) cmdClear(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageErr("clear: unexpected arguments")
	}
	if err := a.saved(a.sess.ClearLog(ctx)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "roll log cleared")
	return nil
}

func (a *app) printPresets() {
	reg := a.sess.Registry()
	fmt.Fprint(a.out, a.render.Presets(reg.ListAll(), reg.Featured(), reg.CustomDieSides()))
}

func (a *app) cmdPresets(args []string) error {
	if len(args) != 0 {
		return usageErr("presets: unexpected arguments")
	}
	a.printPresets()
	return nil
}

func (a *app) cmdAddPreset(ctx context.Context, args []string) error {
	fs := newFlagSet("add-preset")
	id := fs.String("id", "", "preset id (generated when empty)")
	name := fs.String("name", "", "display name")
	category := fs.String("category", "", "roll category")
	tags := fs.String("tags", "", "comma separated tags")
	customDie := fs.Bool("custom-die", false, "roll with the current custom die size")
	if err := fs.Parse(args); err != nil {
		return usageErr("add-preset: %v", err)
	}
	if fs.NArg() == 0 {
		return usageErr("add-preset: missing notation")
	}
	c, err := rolllog.ParseCategory(*category)
	if err != nil {
		return err
	}
	cfg, err := dice.Parse(strings.Join(fs.Args(), ""))
	if err != nil {
		return err
	}

	p := preset.Preset{
		ID:        *id,
		Name:      *name,
		Category:  c,
		Config:    cfg,
		CustomDie: *customDie,
	}
	for _, tag := range strings.Split(*tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}

	added, err := a.sess.AddPreset(ctx, p)
	if err = a.saved(err); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added preset %s (%s)\n", added.ID, added.Config.Notation())
	return nil
}

func (a *app) cmdRemovePreset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("remove-preset: expected one preset id")
	}
	if err := a.saved(a.sess.RemovePreset(ctx, args[0])); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed preset %s\n", args[0])
	return nil
}

func parseSlot(s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageErr("slot %q is not a number", s)
	}
	return slot, nil
}

func (a *app) cmdFeature(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageErr("feature: expected a preset id and a slot")
	}
	slot, err := parseSlot(args[1])
	if err != nil {
		return err
	}
	if err := a.saved(a.sess.SetFeatured(ctx, args[0], slot)); err != nil {
		return err
	}
	a.printPresets()
	return nil
}

func (a *app) cmdUnfeature(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("unfeature: expected a slot")
	}
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	if err := a.saved(a.sess.UnsetFeatured(ctx, slot)); err != nil {
		return err
	}
	a.printPresets()
	return nil
}

func (a *app) cmdReorder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErr("reorder: expected every preset id in the new order")
	}
	if err := a.saved(a.sess.ReorderPresets(ctx, args)); err != nil {
		return err
	}
	a.printPresets()
	return nil
}

func (a *app) cmdCustomDie(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(a.out, "custom die: d%d\n", a.sess.Registry().CustomDieSides())
		return nil
	}
	if len(args) != 1 {
		return usageErr("custom-die: expected a side count")
	}
	sides, err := strconv.Atoi(args[0])
	if err != nil {
		return usageErr("custom-die: %q is not a number", args[0])
	}
	if err := a.saved(a.sess.SetCustomDieSides(ctx, sides)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "custom die: d%d\n", sides)
	return nil
}
