package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tripnest/tripnest/internal/cli/ui"
)

const (
	groupServer = "server"
	groupRelay  = "relay"
	groupConfig = "config"
)

// initHelp installs grouped, colored help output on the root command.
func initHelp() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupServer, Title: "SERVER"},
		&cobra.Group{ID: groupRelay, Title: "OTP & SETTINGS"},
		&cobra.Group{ID: groupConfig, Title: "CONFIGURATION"},
	)

	assign := map[string]string{
		"start":    groupServer,
		"stop":     groupServer,
		"status":   groupServer,
		"otp":      groupRelay,
		"settings": groupRelay,
		"config":   groupConfig,
		"version":  groupConfig,
	}
	for _, cmd := range rootCmd.Commands() {
		if gid, ok := assign[cmd.Name()]; ok {
			cmd.GroupID = gid
		}
	}

	rootCmd.SetHelpFunc(styledHelp)
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		styledHelp(cmd, nil)
		return nil
	})
}

func styledHelp(cmd *cobra.Command, _ []string) {
	c := colorEnabled()
	w := cmd.ErrOrStderr()

	fmt.Fprintln(w)
	switch {
	case cmd == rootCmd:
		fmt.Fprintf(w, "  %s %s\n\n", ui.BrandEmoji, boldCyan("TripNest", c))
		for _, line := range strings.Split(cmd.Long, "\n") {
			switch {
			case strings.TrimSpace(line) == "":
				fmt.Fprintln(w)
			case strings.HasPrefix(line, "  "):
				fmt.Fprintf(w, "    %s\n", green(strings.TrimSpace(line), c))
			default:
				fmt.Fprintf(w, "  %s\n", dim(line, c))
			}
		}
	case cmd.Long != "":
		for _, line := range strings.Split(cmd.Long, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	default:
		fmt.Fprintf(w, "  %s\n", cmd.Short)
	}
	fmt.Fprintln(w)

	useLine := cmd.UseLine()
	if cmd.HasAvailableSubCommands() {
		useLine = cmd.CommandPath() + " [command]"
	}
	fmt.Fprintf(w, "%s\n  %s\n\n", boldCyan("USAGE", c), useLine)

	if cmd.Example != "" {
		fmt.Fprintf(w, "%s\n", boldCyan("EXAMPLES", c))
		for _, line := range strings.Split(cmd.Example, "\n") {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(w, "  %s\n", green(strings.TrimSpace(line), c))
			}
		}
		fmt.Fprintln(w)
	}

	printCommands(w, cmd, c)
	printFlags(w, cmd, c)

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "%s\n\n",
			dim(fmt.Sprintf("Use \"%s [command] --help\" for more information about a command.", cmd.CommandPath()), c))
	}
}

func printCommands(w io.Writer, cmd *cobra.Command, c bool) {
	grouped := make(map[string][]*cobra.Command)
	var other []*cobra.Command
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		if sub.GroupID != "" {
			grouped[sub.GroupID] = append(grouped[sub.GroupID], sub)
		} else {
			other = append(other, sub)
		}
	}
	for _, g := range cmd.Groups() {
		printCommandList(w, boldCyan(g.Title, c), grouped[g.ID], c)
	}
	title := "COMMANDS"
	if len(cmd.Groups()) > 0 {
		title = "OTHER"
	}
	printCommandList(w, boldCyan(title, c), other, c)
}

func printCommandList(w io.Writer, title string, cmds []*cobra.Command, c bool) {
	if len(cmds) == 0 {
		return
	}
	width := 0
	for _, cmd := range cmds {
		width = max(width, len(cmd.Name()))
	}
	fmt.Fprintln(w, title)
	for _, cmd := range cmds {
		fmt.Fprintf(w, "  %s%s\n", bold(fmt.Sprintf("%-*s", width+4, cmd.Name()), c), dim(cmd.Short, c))
	}
	fmt.Fprintln(w)
}

func printFlags(w io.Writer, cmd *cobra.Command, c bool) {
	if cmd == rootCmd {
		printFlagSet(w, "FLAGS", cmd.Flags(), c)
		return
	}
	printFlagSet(w, "FLAGS", cmd.LocalNonPersistentFlags(), c)
	printFlagSet(w, "GLOBAL FLAGS", cmd.InheritedFlags(), c)
}

func printFlagSet(w io.Writer, title string, fs *pflag.FlagSet, c bool) {
	usage := strings.TrimRight(fs.FlagUsages(), "\n")
	if strings.TrimSpace(usage) == "" {
		return
	}
	fmt.Fprintln(w, boldCyan(title, c))
	for _, line := range strings.Split(usage, "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintln(w, colorizeFlag(line, c))
		}
	}
	fmt.Fprintln(w)
}

// colorizeFlag colors the flag part of a pflag usage line cyan and dims the
// description. pflag separates the two with at least three spaces.
func colorizeFlag(line string, c bool) string {
	if !c {
		return line
	}
	trimmed := strings.TrimLeft(line, " ")
	indent := line[:len(line)-len(trimmed)]
	if i := strings.Index(trimmed, "   "); i > 0 {
		if desc := strings.TrimLeft(trimmed[i:], " "); desc != "" {
			return indent + cyan(trimmed[:i], c) + "   " + dim(desc, c)
		}
	}
	return indent + cyan(trimmed, c)
}
