package cli

import (
	"io"

	"github.com/calvinalkan/rollcache/internal/config"
)

// allCommands returns every rollc command in help order.
func allCommands(cfg config.Config, env map[string]string, in io.Reader, logOut io.Writer) []*Command {
	return []*Command{
		SeedCmd(cfg, logOut),
		GetCmd(cfg, logOut),
		LsCmd(cfg, logOut),
		FindCmd(cfg, logOut),
		AddCmd(cfg, logOut),
		SetCmd(cfg, logOut),
		RmCmd(cfg, logOut),
		ExportCmd(cfg, logOut),
		StatsCmd(cfg, logOut),
		ReplCmd(cfg, env, in, logOut),
		PrintConfigCmd(cfg),
	}
}
