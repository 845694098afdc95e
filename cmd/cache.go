package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadmatch/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the enrichment cache",
}

// -- cache stats --

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openCache(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}
		defer st.Close() //nolint:errcheck

		s, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "cache stats")
		}
		formatCacheStats(os.Stdout, cfg.Cache.Driver, s)
		return nil
	},
}

// -- cache prune --

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openCache(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.Prune(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}
		_, _ = fmt.Fprintf(os.Stdout, "Pruned %d expired entries.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func formatCacheStats(out io.Writer, driver string, s cache.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Driver:\t%s\n", driver)
	_, _ = fmt.Fprintf(w, "Entries:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Live:\t%d\n", s.Live)
	_, _ = fmt.Fprintf(w, "  Expired:\t%d\n", s.Expired)
	_ = w.Flush()
}
