package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/diligence/internal/core/config"
	"github.com/vietddude/diligence/internal/infra/upstream"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue and error stats for all registered providers",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/stats", cfg.Server.Port))
	if err != nil {
		slog.Error("Failed to reach service", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var stats upstream.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		slog.Error("Failed to decode stats", "error", err)
		os.Exit(1)
	}

	fmt.Printf("requests: %d  success: %d  failure: %d  cache hits: %d  misses: %d\n\n",
		stats.Requests, stats.Successes, stats.Failures, stats.CacheHits, stats.CacheMisses)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tQUEUE\tIN-FLIGHT\tWINDOW\tERR/MIN")

	for id, ps := range stats.Providers {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			id, ps.Queue.QueueDepth, ps.Queue.InFlight, ps.Queue.WindowCount, ps.ErrorRate)
	}
	_ = w.Flush()
}
