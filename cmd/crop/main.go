// Command crop extracts fixed-size squares around detected smoke from a
// directory of images and their prediction records.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Chouffe/pyro-dataset/internal/cropper"
	"github.com/Chouffe/pyro-dataset/internal/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitSkips   = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dirImages      = fs.String("dir-images", "", "directory of source images (required)")
		dirPredictions = fs.String("dir-predictions", "", "directory of prediction records (required)")
		saveDir        = fs.String("save-dir", "", "directory receiving <stem>_<index>.jpg crops (required)")
		targetSize     = fs.Int("target-size", 224, "side length of the square crops")
		workers        = fs.Int("workers", 1, "images processed concurrently")
		loglevel       = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "crop: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	for name, value := range map[string]string{
		"--dir-images":      *dirImages,
		"--dir-predictions": *dirPredictions,
		"--save-dir":        *saveDir,
	} {
		if value == "" {
			fmt.Fprintf(stderr, "crop: %s is required\n", name)
			fs.Usage()
			return exitUsage
		}
	}
	if *targetSize <= 0 {
		fmt.Fprintln(stderr, "crop: --target-size must be positive")
		return exitUsage
	}

	res, err := cropper.Run(cropper.Options{
		ImagesDir:      *dirImages,
		PredictionsDir: *dirPredictions,
		SaveDir:        *saveDir,
		TargetSize:     *targetSize,
		Workers:        *workers,
	}, log)
	if err != nil {
		log.Error("crop run failed", "error", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "cropped %d images: %d crops, %d dropped, %d skipped\n",
		res.Images, res.Crops, res.Dropped, len(res.Skipped))
	if len(res.Skipped) > 0 {
		return exitSkips
	}
	return exitOK
}
