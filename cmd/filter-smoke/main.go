// Command filter-smoke keeps only the images of a labeled dataset that
// contain annotated smoke and come from an allowed source dataset.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Chouffe/pyro-dataset/internal/dataset"
	"github.com/Chouffe/pyro-dataset/internal/fsutil"
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
	fs := flag.NewFlagSet("filter-smoke", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dirDataset = fs.String("dir-dataset", "", "dataset root holding images/ and labels/ (required)")
		saveDir    = fs.String("save-dir", "", "directory receiving the filtered dataset (required)")
		prefixes   = fs.String("allowed-dataset-prefixes", strings.Join(dataset.DefaultSmokePrefixes, ","),
			"comma-separated dataset prefixes to keep")
		loglevel = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "filter-smoke: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	if *dirDataset == "" || *saveDir == "" {
		fmt.Fprintln(stderr, "filter-smoke: --dir-dataset and --save-dir are required")
		fs.Usage()
		return exitUsage
	}

	var allowed []string
	for _, p := range strings.Split(*prefixes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			allowed = append(allowed, p)
		}
	}
	if len(allowed) == 0 {
		fmt.Fprintln(stderr, "filter-smoke: --allowed-dataset-prefixes must name at least one prefix")
		return exitUsage
	}

	images, err := dataset.ListImages(*dirDataset)
	if err != nil {
		fmt.Fprintf(stderr, "filter-smoke: %v\n", err)
		return exitUsage
	}
	if err := os.MkdirAll(*saveDir, 0o755); err != nil {
		log.Error("creating save dir failed", "dir", *saveDir, "error", err)
		return exitFailure
	}

	filter := dataset.NewSmokeFilter(allowed)
	kept := 0
	for _, img := range images {
		keep, err := filter.Keep(img)
		if err != nil {
			log.Error("inspecting image failed", "image", img, "error", err)
			return exitFailure
		}
		if !keep {
			log.Debug("filtered out", "image", img)
			continue
		}

		labelSrc, err := dataset.LabelPathFor(img)
		if err != nil {
			log.Error("resolving label failed", "image", img, "error", err)
			return exitFailure
		}
		imgRel, err := filepath.Rel(*dirDataset, img)
		if err != nil {
			log.Error("resolving relative path failed", "image", img, "error", err)
			return exitFailure
		}
		labelRel, err := filepath.Rel(*dirDataset, labelSrc)
		if err != nil || strings.HasPrefix(labelRel, "..") {
			fmt.Fprintf(stderr, "filter-smoke: label %s lives outside --dir-dataset\n", labelSrc)
			return exitUsage
		}

		if err := fsutil.CopyFile(filepath.Join(*saveDir, imgRel), img); err != nil {
			log.Error("copying image failed", "image", img, "error", err)
			return exitFailure
		}
		if err := fsutil.CopyFile(filepath.Join(*saveDir, labelRel), labelSrc); err != nil {
			log.Error("copying label failed", "label", labelSrc, "error", err)
			return exitFailure
		}
		kept++
	}

	log.Info("smoke filter finished", "dir", *dirDataset, "kept", kept, "seen", len(images))
	fmt.Fprintf(stdout, "kept %d of %d images\n", kept, len(images))
	return exitOK
}
