package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

// StatsCmd returns the stats command.
func StatsCmd(cfg config.Config, logOut io.Writer) *Command {
	flags := flag.NewFlagSet("stats", flag.ContinueOnError)
	read := flags.Int("read", 0, "Read this many rows from the start first (0 reads every row)")
	stride := flags.Int("stride", 1, "Step between rows read")

	return &Command{
		Flags: flags,
		Usage: "stats [flags]",
		Short: "Read rows and print cache metrics",
		Long:  "Read rows through the cache and print its counters in the Prometheus text format.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if *read < 0 || *stride < 1 {
				return errors.New("stats: --read must be non-negative and --stride positive")
			}

			return withSession(ctx, cfg, logOut, func(s *session) error {
				outer := s.cache.OuterLimits()

				end := outer.Last()
				if *read > 0 {
					end = min(end, *read-1)
				}

				for row := outer.First; row <= end; row += *stride {
					_, err := s.cache.Get(ctx, row)
					if err != nil {
						return err
					}
				}

				return writeMetrics(o.Out(), "products", s.cache)
			})
		},
	}
}

// writeMetrics registers a collector for src on a fresh registry and writes
// every family in the Prometheus text format.
func writeMetrics(w io.Writer, name string, src rollcache.Observable) error {
	reg := prometheus.NewPedanticRegistry()

	err := reg.Register(rollcache.NewCollector(name, src))
	if err != nil {
		return fmt.Errorf("register collector: %w", err)
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, family := range families {
		_, err = expfmt.MetricFamilyToText(w, family)
		if err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
