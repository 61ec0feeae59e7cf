package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/exclusion.report/internal/config"
	"github.com/banshee-data/exclusion.report/internal/exclusion"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"github.com/banshee-data/exclusion.report/internal/store"
	"github.com/banshee-data/exclusion.report/internal/version"
)

// parseCSVStrings splits a comma-separated list, dropping empty entries.
func parseCSVStrings(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	configPath := flag.String("config", "", "JSON config file (defaults apply to anything omitted)")
	results := flag.String("results", "", "Directory of fit result files (overrides results_dir)")
	regions := flag.String("regions", "", "Comma-separated region identifiers, e.g. A,B,C (overrides regions)")
	output := flag.String("output", "", "Output directory for plots and harvest files (overrides output_dir)")
	dbPath := flag.String("db", "", "SQLite run database (overrides database)")
	workers := flag.Int("workers", 0, "Regions extracted in parallel (overrides workers)")
	combine := flag.Bool("combine", false, "Also plot the best-expected combination of all regions")
	status := flag.String("status", "", "Experiment label: internal, preliminary or none")
	listRuns := flag.Bool("list-runs", false, "List runs stored in the database and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.EmptyContoursConfig()
	if *configPath != "" {
		loaded, err := config.LoadContoursConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *results != "" {
		cfg.ResultsDir = results
	}
	if *regions != "" {
		cfg.Regions = parseCSVStrings(*regions)
	}
	if *output != "" {
		cfg.OutputDir = output
	}
	if *dbPath != "" {
		cfg.Database = dbPath
	}
	if *workers > 0 {
		cfg.Workers = workers
	}
	if *combine {
		cfg.Combine = combine
	}
	if *status != "" {
		s := *status
		if s == "none" {
			s = ""
		}
		cfg.Status = &s
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var st *store.Store
	if path := cfg.GetDatabase(); path != "" {
		var err error
		st, err = store.Open(path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listRuns {
		if st == nil {
			log.Fatal("-list-runs needs a database (-db or database in the config)")
		}
		if err := printRuns(ctx, st); err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		return
	}

	if err := run(ctx, cfg, st); err != nil {
		stop()
		log.Fatalf("Run failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.ContoursConfig, st *store.Store) error {
	contourCfg, err := cfg.ContourConfig()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	opts := exclusion.Options{
		Harvest:       cfg.HarvestConfig(),
		Contour:       contourCfg,
		Plot:          cfg.PlotOptions(),
		Combine:       cfg.GetCombine(),
		CombineFigure: cfg.GetCombineFigure(),
		OutputDir:     cfg.GetOutputDir(),
		SurfacePages:  cfg.GetSurfacePages(),
		Workers:       cfg.GetWorkers(),
		ConfigJSON:    raw,
	}
	runner, err := exclusion.NewRunner(fsutil.OSFileSystem{}, opts, st)
	if err != nil {
		return err
	}

	log.Printf("%s: %d regions from %s", version.String(), len(opts.Harvest.Regions), opts.Harvest.ResultsDir)
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	report.Summary()
	if report.RunID != "" {
		log.Printf("Stored run %s", report.RunID)
	}
	return nil
}

func printRuns(ctx context.Context, st *store.Store) error {
	runs, err := st.Runs(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		regions, err := st.Regions(ctx, r.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Version, strings.Join(regions, ","))
	}
	return nil
}
