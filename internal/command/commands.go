// Package command provides the command registry, line parser, and built-in
// command definitions shared by the dicebag CLI and its interactive shell.
package command

// Categories for organizing commands.
const (
	CategoryRolling = "rolling"
	CategoryHistory = "history"
	CategoryPresets = "presets"
	CategorySystem  = "system"
)

// Handler identifiers mapping commands to CLI handlers.
const (
	HandlerRoll         = "roll"
	HandlerPreset       = "preset"
	HandlerLog          = "log"
	HandlerClear        = "clear"
	HandlerPresets      = "presets"
	HandlerAddPreset    = "add-preset"
	HandlerRemovePreset = "remove-preset"
	HandlerFeature      = "feature"
	HandlerUnfeature    = "unfeature"
	HandlerReorder      = "reorder"
	HandlerCustomDie    = "custom-die"
	HandlerShell        = "shell"
	HandlerHelp         = "help"
	HandlerQuit         = "quit"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis, without the command name.
	Usage string
	// Help is the short help text.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler maps to the CLI handler.
	Handler string
}

// BuiltinCommands returns all built-in dicebag commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "roll", Aliases: []string{"r"}, Usage: "[-label L] [-category C] [-note N] [-v] <notation>", Help: "Roll dice notation such as 4d6dl1 or d20adv+5", Category: CategoryRolling, Handler: HandlerRoll},
		{Name: "preset", Aliases: []string{"p"}, Usage: "[-note N] [-v] <id>", Help: "Roll a saved preset", Category: CategoryRolling, Handler: HandlerPreset},
		{Name: "log", Aliases: []string{"history", "h"}, Usage: "[-n count] [-category C] [-v]", Help: "Show recent rolls, newest first", Category: CategoryHistory, Handler: HandlerLog},
		{Name: "clear", Usage: "", Help: "Clear the roll log", Category: CategoryHistory, Handler: HandlerClear},
		{Name: "presets", Aliases: []string{"ls"}, Usage: "", Help: "List presets; featured presets show their slot", Category: CategoryPresets, Handler: HandlerPresets},
		{Name: "add-preset", Aliases: []string{"add"}, Usage: "[-id ID] -name NAME [-category C] [-tags a,b] [-custom-die] <notation>", Help: "Save a custom preset", Category: CategoryPresets, Handler: HandlerAddPreset},
		{Name: "remove-preset", Aliases: []string{"rm"}, Usage: "<id>", Help: "Delete a custom preset", Category: CategoryPresets, Handler: HandlerRemovePreset},
		{Name: "feature", Usage: "<id> <slot>", Help: "Place a preset in a featured slot", Category: CategoryPresets, Handler: HandlerFeature},
		{Name: "unfeature", Usage: "<slot>", Help: "Clear a featured slot", Category: CategoryPresets, Handler: HandlerUnfeature},
		{Name: "reorder", Usage: "<id>...", Help: "Rearrange presets; every id must be listed once", Category: CategoryPresets, Handler: HandlerReorder},
		{Name: "custom-die", Aliases: []string{"die"}, Usage: "[sides]", Help: "Show or set the custom die size", Category: CategoryPresets, Handler: HandlerCustomDie},
		{Name: "shell", Usage: "", Help: "Start the interactive shell", Category: CategorySystem, Handler: HandlerShell},
		{Name: "help", Aliases: []string{"?"}, Usage: "", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "q"}, Usage: "", Help: "Leave the interactive shell", Category: CategorySystem, Handler: HandlerQuit},
	}
}
