package cli

import (
	"context"
	"errors"
	"io"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/internal/store"
)

const defaultLsLimit = 20

// GetCmd returns the get command.
func GetCmd(cfg config.Config, logOut io.Writer) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <row>...",
		Short: "Print products by row number",
		Long:  "Print the products at the given row numbers. Rows count from 0 in id order.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errors.New("get: at least one row is required")
			}

			rows := make([]int, 0, len(args))

			for _, arg := range args {
				row, err := parseRow(arg)
				if err != nil {
					return err
				}

				rows = append(rows, row)
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				for _, row := range rows {
					p, err := s.cache.Get(ctx, row)
					if err != nil {
						return err
					}

					o.Println(formatRow(row, p))
				}

				return nil
			})
		},
	}
}

// LsCmd returns the ls command.
func LsCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	from := flags.Int("from", 0, "First row to list")
	limit := flags.Int("limit", defaultLsLimit, "Maximum rows to list (0 for all)")

	return &Command{
		Flags: flags,
		Usage: "ls [flags]",
		Short: "List products in row order",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *from < 0 || *limit < 0 {
				return errors.New("ls: --from and --limit must be non-negative")
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				outer := s.cache.OuterLimits()

				end := outer.Last()
				if *limit > 0 {
					end = min(end, *from+*limit-1)
				}

				for row := *from; row <= end; row++ {
					p, err := s.cache.Get(ctx, row)
					if err != nil {
						return err
					}

					o.Println(formatRow(row, p))
				}

				if *from > outer.Last() && outer.Length > 0 {
					o.Warn("no rows listed", "the table has rows 0.."+strconv.Itoa(outer.Last()))
				}

				return nil
			})
		},
	}
}

// FindCmd returns the find command.
func FindCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("find", flag.ContinueOnError)
	code := flags.String("code", "", "Match codes starting with this prefix")
	name := flags.String("name", "", "Match names containing this text")
	limit := flags.Int("limit", 0, "Maximum matches (0 for all)")

	return &Command{
		Flags: flags,
		Usage: "find [flags]",
		Short: "Find products by example",
		Long:  "Find products whose code starts with --code and whose name contains --name. Prints row numbers usable with get, set and rm.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return withSession(ctx, cfg, logOut, func(s *session) error {
				matches, err := s.store.FindByExample(ctx, store.Example{
					CodePrefix:   *code,
					NameContains: *name,
					Limit:        *limit,
				})
				if err != nil {
					return err
				}

				for _, m := range matches {
					o.Println(formatRow(m.Row, m.Product))
				}

				return nil
			})
		},
	}
}
