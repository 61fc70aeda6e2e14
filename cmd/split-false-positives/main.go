// Command split-false-positives turns a tree of false-positive observation
// folders into train/val/test splits with empty labels.
//
// Whole folders are assigned to a split so that frames of one observation
// never leak across splits. The assignment is deterministic for a given
// seed and folder set.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Chouffe/pyro-dataset/internal/dataset"
	"github.com/Chouffe/pyro-dataset/internal/fsutil"
	"github.com/Chouffe/pyro-dataset/internal/label"
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
	fs := flag.NewFlagSet("split-false-positives", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dirDataset    = fs.String("dir-dataset", "", "directory of observation folders (required)")
		saveDir       = fs.String("save-dir", "", "directory receiving the split dataset (required)")
		seed          = fs.Int64("random-seed", 0, "seed for the split shuffle (required)")
		ratioTrainVal = fs.Float64("ratio-train-val", 0.9, "fraction of folders assigned to train")
		ratioValTest  = fs.Float64("ratio-val-test", 0.5, "fraction of the remainder assigned to val")
		loglevel      = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "split-false-positives: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "random-seed" {
			seedSet = true
		}
	})
	if *dirDataset == "" || *saveDir == "" || !seedSet {
		fmt.Fprintln(stderr, "split-false-positives: --dir-dataset, --save-dir and --random-seed are required")
		fs.Usage()
		return exitUsage
	}

	ratios := dataset.SplitRatios{TrainVal: *ratioTrainVal, ValTest: *ratioValTest}
	if err := ratios.Validate(); err != nil {
		fmt.Fprintf(stderr, "split-false-positives: %v\n", err)
		return exitUsage
	}

	folders, err := dataset.ListSubdirs(*dirDataset)
	if err != nil {
		fmt.Fprintf(stderr, "split-false-positives: %v\n", err)
		return exitUsage
	}
	split := dataset.SplitFolders(folders, *seed, ratios)

	for _, s := range []string{dataset.SplitTrain, dataset.SplitVal, dataset.SplitTest} {
		for _, dir := range []string{dataset.ImagesDir(*saveDir, s), dataset.LabelsDir(*saveDir, s)} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Error("creating split dir failed", "dir", dir, "error", err)
				return exitFailure
			}
		}
	}

	counts := map[string]int{}
	parts := []struct {
		name    string
		folders []string
	}{
		{dataset.SplitTrain, split.Train},
		{dataset.SplitVal, split.Val},
		{dataset.SplitTest, split.Test},
	}
	for _, part := range parts {
		for _, folder := range part.folders {
			obs, err := dataset.ParseObservationFolder(folder)
			if err != nil {
				fmt.Fprintf(stderr, "split-false-positives: %v\n", err)
				return exitUsage
			}
			images, err := dataset.ListImages(filepath.Join(*dirDataset, folder))
			if err != nil {
				log.Error("listing images failed", "folder", folder, "error", err)
				return exitFailure
			}
			for _, img := range images {
				name, err := dataset.ObservationImageName(obs, label.Stem(img))
				if err != nil {
					fmt.Fprintf(stderr, "split-false-positives: %v\n", err)
					return exitUsage
				}
				dst := filepath.Join(dataset.ImagesDir(*saveDir, part.name), name)
				if err := fsutil.CopyFile(dst, img); err != nil {
					log.Error("copying image failed", "image", img, "error", err)
					return exitFailure
				}
				recPath := filepath.Join(dataset.LabelsDir(*saveDir, part.name), label.RecordName(name))
				if err := fsutil.WriteFile(recPath, nil, 0o644); err != nil {
					log.Error("writing label failed", "path", recPath, "error", err)
					return exitFailure
				}
				counts[part.name]++
			}
			log.Debug("folder assigned", "folder", folder, "split", part.name)
		}
	}

	log.Info("false-positive split finished",
		"folders", len(folders),
		"train", counts[dataset.SplitTrain],
		"val", counts[dataset.SplitVal],
		"test", counts[dataset.SplitTest])
	fmt.Fprintf(stdout, "split %d folders: %d train, %d val, %d test images\n",
		len(folders), counts[dataset.SplitTrain], counts[dataset.SplitVal], counts[dataset.SplitTest])
	return exitOK
}
