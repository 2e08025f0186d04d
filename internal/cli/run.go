// Package cli implements rollc, a command line browser for the products
// table that reads and edits rows through a rolling cache.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/calvinalkan/rollcache/internal/config"
)

const (
	consumedNone = 0
	consumedOne  = 1
	consumedTwo  = 2
	helpFlag     = "--help"
)

// ErrUnknownFlag reports a global flag rollc does not know.
var ErrUnknownFlag = errors.New("unknown flag")

// Run is the main entry point. Returns exit code.
//
// A value received on sigCh cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	flags, err := parseGlobalFlags(args[min(1, len(args)):])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride:   flags.workDir,
		ConfigPath:        flags.configPath,
		DBPathOverride:    flags.dbPath,
		PageSizeOverride:  flags.pageSize,
		MaxWindowOverride: flags.maxWindow,
		LogLevelOverride:  flags.logLevel,
		Env:               env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	commands := allCommands(cfg, env, in, errOut)

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(out, commands)

		return 0
	}

	name := flags.remaining[0]

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(out, errOut), flags.remaining[1:])
}

type globalFlags struct {
	workDir    string
	configPath string
	dbPath     string
	pageSize   int
	maxWindow  int
	logLevel   string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// stringFlag matches "--name value" and "--name=value" (and the short form
// when given). It returns the value and the number of args consumed.
func stringFlag(args []string, idx int, long, short string) (string, int, error) {
	arg := args[idx]

	if arg == long || (short != "" && arg == short) {
		if idx+1 >= len(args) {
			return "", consumedNone, fmt.Errorf("%w: %s", config.ErrFlagRequiresArg, arg)
		}

		return args[idx+1], consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, long+"="); ok {
		return after, consumedOne, nil
	}

	return "", consumedNone, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C<dir> without a space
	if after, ok := strings.CutPrefix(arg, "-C"); ok && after != "" {
		flags.workDir = after

		return consumedOne, nil
	}

	stringTargets := []struct {
		long, short string
		dst         *string
	}{
		{"--cwd", "-C", &flags.workDir},
		{"--config", "-c", &flags.configPath},
		{"--db", "", &flags.dbPath},
		{"--log-level", "", &flags.logLevel},
	}

	for _, target := range stringTargets {
		value, consumed, err := stringFlag(args, idx, target.long, target.short)
		if err != nil {
			return consumedNone, err
		}

		if consumed > 0 {
			*target.dst = value

			return consumed, nil
		}
	}

	intTargets := []struct {
		long string
		dst  *int
	}{
		{"--page-size", &flags.pageSize},
		{"--max-window", &flags.maxWindow},
	}

	for _, target := range intTargets {
		value, consumed, err := stringFlag(args, idx, target.long, "")
		if err != nil {
			return consumedNone, err
		}

		if consumed > 0 {
			n, convErr := strconv.Atoi(value)
			if convErr != nil || n < 1 {
				return consumedNone, fmt.Errorf("%s: want a positive integer, got %q", target.long, value)
			}

			*target.dst = n

			return consumed, nil
		}
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, `rollc - browse and edit the products table through a rolling cache

Usage: rollc [options] <command> [args]

Options:
  -C, --cwd <dir>        Run as if started in <dir>
  -c, --config <file>    Use specified config file
      --db <path>        SQLite database path
      --page-size <n>    Rows fetched per page
      --max-window <n>   Rows kept in memory
      --log-level <lvl>  debug, info, warn or error

Commands:`)

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
