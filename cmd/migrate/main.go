package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"booking-engine/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
)

// Applies migrations/ as the desired schema state. Requires the atlas binary
// on PATH and a scratch database for diffing.
func main() {
	var (
		dir    = flag.String("dir", "file://migrations", "desired schema source")
		devURL = flag.String("dev-url", "docker://postgres/17/dev", "atlas dev database")
		dryRun = flag.Bool("dry-run", false, "print the plan without applying it")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(".", "atlas")
	if err != nil {
		logger.Error("failed to initialize atlas client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:         dbCfg.BuildDSN(),
		To:          *dir,
		DevURL:      *devURL,
		DryRun:      *dryRun,
		AutoApprove: true,
	})
	if err != nil {
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}

	logger.Info("schema apply finished",
		"applied", len(res.Changes.Applied),
		"pending", len(res.Changes.Pending),
		"dry_run", *dryRun)
}
