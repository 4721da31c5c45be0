package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/phi-engine/internal/cache"
	"github.com/danielpatrickdp/phi-engine/internal/config"
	"github.com/danielpatrickdp/phi-engine/internal/logging"
)

var inspectFlags struct {
	configPath string
	dbPath     string
	limit      int
	cacheInfo  bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show recent analyses and cache contents",
	Long: `Inspect the analysis database: recent runs from the analysis log and,
with --cache, the persisted cost matrices.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&inspectFlags.dbPath, "db", "", "Database path (default: from config)")
	f.IntVarP(&inspectFlags.limit, "limit", "n", 20, "Number of entries to show")
	f.BoolVar(&inspectFlags.cacheInfo, "cache", false, "Also list persisted cache entries")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(inspectFlags.configPath)
	if err != nil {
		return err
	}
	dbPath := cfg.DBPath
	if inspectFlags.dbPath != "" {
		dbPath = inspectFlags.dbPath
	}

	store, err := cache.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := logging.EnsureSchema(store.DB()); err != nil {
		return err
	}

	entries, err := logging.ListAnalyses(store.DB(), inspectFlags.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no analyses logged")
	}
	for _, e := range entries {
		cut := e.CutJSON
		if cut == "" {
			cut = "reducible"
		}
		fmt.Printf("%s  %s  nodes=%s state=%s Phi=%.6f concepts=%d %s (%dms)\n",
			e.CreatedAt.Format(time.RFC3339), e.ID[:8], e.Nodes, e.State, e.Phi, e.Concepts, cut, e.ElapsedMS)
		if e.Note != "" {
			fmt.Printf("  note: %s\n", e.Note)
		}
	}

	if inspectFlags.cacheInfo {
		cached, err := store.Entries()
		if err != nil {
			return err
		}
		fmt.Printf("persisted cache entries: %d\n", len(cached))
		for _, c := range cached {
			fmt.Printf("  %s  %d bytes  touched %s\n", c.Key[:16], c.Size, c.TouchedAt.Format(time.RFC3339))
		}
	}
	return nil
}
