// Command predict runs the smoke detection model over a directory of
// images and writes one prediction record per image.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Chouffe/pyro-dataset/internal/detect"
	"github.com/Chouffe/pyro-dataset/internal/logging"
	"github.com/Chouffe/pyro-dataset/internal/predictor"
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
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dirImages = fs.String("dir-images", "", "directory of images to predict on (required)")
		weights   = fs.String("filepath-weights", "", "ONNX model weights (required)")
		saveDir   = fs.String("save-dir", "", "directory receiving one <stem>.txt record per image (required)")
		conf      = fs.Float64("conf-threshold", float64(detect.DefaultConfThreshold), "minimum detection confidence")
		iou       = fs.Float64("iou-threshold", float64(detect.DefaultIoUThreshold), "NMS IoU threshold")
		loglevel  = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "predict: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	for name, value := range map[string]string{
		"--dir-images":       *dirImages,
		"--filepath-weights": *weights,
		"--save-dir":         *saveDir,
	} {
		if value == "" {
			fmt.Fprintf(stderr, "predict: %s is required\n", name)
			fs.Usage()
			return exitUsage
		}
	}

	// The model loads exactly once, before any output is written. A
	// missing or corrupt weights file is fatal.
	eng, err := detect.NewEngine(*weights, detect.Options{
		ConfThreshold: float32(*conf),
		IoUThreshold:  float32(*iou),
	})
	if err != nil {
		log.Error("loading detection model failed", "weights", *weights, "error", err)
		return exitFailure
	}
	defer eng.Close()

	res, err := predictor.Run(eng, predictor.Options{
		ImagesDir: *dirImages,
		SaveDir:   *saveDir,
	}, log)
	if err != nil {
		log.Error("prediction run failed", "error", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "predicted %d images: %d detections, %d skipped\n",
		res.Images, res.Detections, len(res.Skipped))
	if len(res.Skipped) > 0 {
		return exitSkips
	}
	return exitOK
}
