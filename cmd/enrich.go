package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadmatch/internal/model"
	"github.com/sells-group/leadmatch/internal/tabular"
)

var enrichWorkers int

var enrichCmd = &cobra.Command{
	Use:   "enrich <orgnr>...",
	Short: "Fetch employee and revenue figures for organization numbers",
	Long:  "Looks up each organization number in the registry APIs (through the cache) and prints the figures as JSON. Unknown figures are omitted.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ids := make([]string, 0, len(args))
		for _, a := range args {
			if id := tabular.OnlyDigits(a); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return eris.New("enrich: no organization numbers given")
		}

		env, err := initFetcher(ctx, cfg, enrichWorkers)
		if err != nil {
			return err
		}
		defer env.Close()

		batch := env.Fetcher.Fetch(ctx, ids)
		out := make([]model.EnrichmentResult, 0, len(ids))
		for _, id := range ids {
			out = append(out, batch.Get(id))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "enrich: encode")
		}
		if batch.Cancelled() {
			return eris.Wrap(batch.Err, "enrich: cancelled")
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "enrichment workers (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
