// Command install-dataset materializes a hub dataset into the local
// images/labels layout the rest of the tooling expects.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Chouffe/pyro-dataset/internal/config"
	"github.com/Chouffe/pyro-dataset/internal/hub"
	"github.com/Chouffe/pyro-dataset/internal/installer"
	"github.com/Chouffe/pyro-dataset/internal/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("install-dataset", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dataset    = fs.String("dataset", "pyronear/pyro-sdis", "hub dataset id (org/name)")
		saveDir    = fs.String("save-dir", "", "directory receiving the materialized snapshot (required)")
		parquetDir = fs.String("dir-parquet", "", "cache directory for downloaded shards (default <save-dir>.parquet)")
		loglevel   = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "install-dataset: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	if *saveDir == "" {
		fmt.Fprintln(stderr, "install-dataset: --save-dir is required")
		fs.Usage()
		return exitUsage
	}
	if *dataset == "" {
		fmt.Fprintln(stderr, "install-dataset: --dataset must not be empty")
		return exitUsage
	}
	if *parquetDir == "" {
		*parquetDir = *saveDir + ".parquet"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	client := hub.NewClient(cfg.HubEndpoint, cfg.HubToken, log)
	ins := installer.New(client, log)

	summary, err := ins.Install(ctx, installer.Options{
		Dataset:    *dataset,
		ParquetDir: *parquetDir,
		SaveDir:    *saveDir,
	})
	if err != nil {
		log.Error("install failed", "dataset", *dataset, "error", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "installed %s: %d images across %d splits (%d shards, %d downloaded)\n",
		*dataset, summary.Images, summary.Splits, summary.Shards, summary.Downloaded)
	return exitOK
}
