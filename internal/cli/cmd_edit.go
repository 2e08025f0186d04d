package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/internal/store"
)

const defaultSeedCount = 1000

// SeedCmd returns the seed command.
func SeedCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	count := flags.IntP("count", "n", defaultSeedCount, "Number of products to generate")

	return &Command{
		Flags: flags,
		Usage: "seed [flags]",
		Short: "Append generated products",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *count < 0 {
				return errors.New("seed: --count must be non-negative")
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				n, err := s.store.Seed(ctx, *count)
				if err != nil {
					return err
				}

				total, err := s.store.TotalRange(ctx)
				if err != nil {
					return err
				}

				o.Printf("seeded %d products (%d total)\n", n, total.Length)

				return nil
			})
		},
	}
}

// productFlags registers --code, --name and --price on flags.
type productFlags struct {
	flags *flag.FlagSet
	code  *string
	name  *string
	price *string
}

func newProductFlags(flags *flag.FlagSet) productFlags {
	return productFlags{
		flags: flags,
		code:  flags.String("code", "", "Product code"),
		name:  flags.String("name", "", "Product name"),
		price: flags.String("price", "", "Unit price, e.g. 12.34"),
	}
}

// apply overwrites the fields of p whose flags were given.
func (pf productFlags) apply(p store.Product) (store.Product, error) {
	if pf.flags.Changed("code") {
		p.Code = *pf.code
	}

	if pf.flags.Changed("name") {
		p.Name = *pf.name
	}

	if pf.flags.Changed("price") {
		cents, err := parsePrice(*pf.price)
		if err != nil {
			return store.Product{}, err
		}

		p.PriceCents = cents
	}

	return p, nil
}

// AddCmd returns the add command.
func AddCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	pf := newProductFlags(flags)

	return &Command{
		Flags: flags,
		Usage: "add --code <c> --name <n> --price <p>",
		Short: "Add a product",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *pf.code == "" || *pf.name == "" {
				return errors.New("add: --code and --name are required")
			}

			p, err := pf.apply(store.Product{})
			if err != nil {
				return err
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				s.cache.Add(p)

				err := s.flush(ctx)
				if err != nil {
					return err
				}

				last := s.cache.OuterLimits().Last()

				added, err := s.cache.Get(ctx, last)
				if err != nil {
					return err
				}

				o.Println(formatRow(last, added))

				return nil
			})
		},
	}
}

// SetCmd returns the set command.
func SetCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("set", flag.ContinueOnError)
	pf := newProductFlags(flags)

	return &Command{
		Flags: flags,
		Usage: "set <row> [flags]",
		Short: "Change fields of a product",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("set: exactly one row is required")
			}

			row, err := parseRow(args[0])
			if err != nil {
				return err
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				p, err := s.cache.Get(ctx, row)
				if err != nil {
					return err
				}

				updated, err := pf.apply(p)
				if err != nil {
					return err
				}

				if updated == p {
					o.Warn("nothing changed", "pass --code, --name or --price with a new value")

					return nil
				}

				_, err = s.cache.UpdateAt(ctx, row, updated)
				if err != nil {
					return err
				}

				err = s.flush(ctx)
				if err != nil {
					return err
				}

				o.Println(formatRow(row, updated))

				return nil
			})
		},
	}
}

// RmCmd returns the rm command.
func RmCmd(cfg config.Config, logOut io.Writer) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <row>...",
		Short: "Delete products",
		Long:  "Delete the products at the given row numbers. Row numbers refer to the table before any of them is deleted.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errors.New("rm: at least one row is required")
			}

			rows := make([]int, 0, len(args))

			for _, arg := range args {
				row, err := parseRow(arg)
				if err != nil {
					return err
				}

				if !slices.Contains(rows, row) {
					rows = append(rows, row)
				}
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				for _, row := range rows {
					_, err := s.cache.DeleteAt(ctx, row)
					if err != nil {
						return err
					}
				}

				n := s.cache.PendingLen()

				err := s.flush(ctx)
				if err != nil {
					return err
				}

				o.Println(fmt.Sprintf("deleted %d products", n))

				return nil
			})
		},
	}
}
