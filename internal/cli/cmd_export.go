package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/internal/store"
)

// exportLine is one JSONL record written by export.
type exportLine struct {
	Row int `json:"row"`
	store.Product
}

// ExportCmd returns the export command.
func ExportCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	from := flags.Int("from", 0, "First row to export")
	limit := flags.Int("limit", 0, "Maximum rows to export (0 for all)")

	return &Command{
		Flags: flags,
		Usage: "export <file> [flags]",
		Short: "Write products as JSON lines",
		Long:  "Write products as one JSON object per line. The file is replaced atomically, so readers never see a partial export.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("export: exactly one file is required")
			}

			if *from < 0 || *limit < 0 {
				return errors.New("export: --from and --limit must be non-negative")
			}

			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.EffectiveCwd, path)
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				var buf bytes.Buffer

				enc := json.NewEncoder(&buf)
				outer := s.cache.OuterLimits()

				end := outer.Last()
				if *limit > 0 {
					end = min(end, *from+*limit-1)
				}

				written := 0

				for row := *from; row <= end; row++ {
					p, err := s.cache.Get(ctx, row)
					if err != nil {
						return err
					}

					err = enc.Encode(exportLine{Row: row, Product: p})
					if err != nil {
						return fmt.Errorf("export: encode row %d: %w", row, err)
					}

					written++
				}

				err := atomic.WriteFile(path, &buf)
				if err != nil {
					return fmt.Errorf("export: write %s: %w", path, err)
				}

				o.Printf("exported %d products to %s\n", written, path)

				return nil
			})
		},
	}
}
