package main

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Chouffe/pyro-dataset/internal/imaging"
	"github.com/Chouffe/pyro-dataset/internal/label"
)

type cropFixture struct {
	imagesDir      string
	predictionsDir string
	saveDir        string
}

func newCropFixture(t *testing.T) cropFixture {
	t.Helper()
	root := t.TempDir()
	f := cropFixture{
		imagesDir:      filepath.Join(root, "images"),
		predictionsDir: filepath.Join(root, "predictions"),
		saveDir:        filepath.Join(root, "crops"),
	}
	for _, d := range []string{f.imagesDir, f.predictionsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	return f
}

func (f cropFixture) args(extra ...string) []string {
	return append([]string{
		"--dir-images", f.imagesDir,
		"--dir-predictions", f.predictionsDir,
		"--save-dir", f.saveDir,
		"--loglevel", "error",
	}, extra...)
}

func TestRun_CropsDetections(t *testing.T) {
	f := newCropFixture(t)
	if err := imaging.WriteJPEG(filepath.Join(f.imagesDir, "fire_a.jpg"), image.NewRGBA(image.Rect(0, 0, 600, 400))); err != nil {
		t.Fatalf("writing fixture image: %v", err)
	}
	preds := label.FormatPredictions([]label.Prediction{
		{Class: 0, Box: label.Box{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, Confidence: 0.9},
		{Class: 0, Box: label.Box{CX: 0.25, CY: 0.25, W: 0.1, H: 0.1}, Confidence: 0.7},
	})
	if err := os.WriteFile(filepath.Join(f.predictionsDir, "fire_a.txt"), preds, 0644); err != nil {
		t.Fatalf("writing fixture record: %v", err)
	}

	var out, errOut bytes.Buffer
	code := run(f.args("--target-size", "128"), &out, &errOut)
	if code != exitOK {
		t.Fatalf("run failed with %d: %s", code, errOut.String())
	}

	for _, name := range []string{"fire_a_0.jpg", "fire_a_1.jpg"} {
		crop, err := imaging.Decode(filepath.Join(f.saveDir, name))
		if err != nil {
			t.Fatalf("crop %s unreadable: %v", name, err)
		}
		if crop.Bounds().Dx() != 128 || crop.Bounds().Dy() != 128 {
			t.Fatalf("crop %s is %dx%d, want 128x128", name, crop.Bounds().Dx(), crop.Bounds().Dy())
		}
	}
	if !strings.Contains(out.String(), "cropped 1 images: 2 crops") {
		t.Fatalf("unexpected summary: %q", out.String())
	}
}

func TestRun_SkippedImagesChangeExitCode(t *testing.T) {
	f := newCropFixture(t)
	if err := imaging.WriteJPEG(filepath.Join(f.imagesDir, "orphan.jpg"), image.NewRGBA(image.Rect(0, 0, 100, 100))); err != nil {
		t.Fatalf("writing fixture image: %v", err)
	}
	// No prediction record for orphan.jpg.

	var out, errOut bytes.Buffer
	code := run(f.args(), &out, &errOut)
	if code != exitSkips {
		t.Fatalf("expected skip exit, got %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "1 skipped") {
		t.Fatalf("summary should count the skip: %q", out.String())
	}
}

func TestRun_RequiresFlags(t *testing.T) {
	base := map[string]string{
		"--dir-images":      "images",
		"--dir-predictions": "predictions",
		"--save-dir":        "crops",
	}
	for omitted := range base {
		var args []string
		for name, value := range base {
			if name != omitted {
				args = append(args, name, value)
			}
		}

		var out, errOut bytes.Buffer
		if code := run(args, &out, &errOut); code != exitUsage {
			t.Fatalf("omitting %s: expected usage exit, got %d", omitted, code)
		}
	}
}

func TestRun_RejectsNonPositiveTargetSize(t *testing.T) {
	f := newCropFixture(t)
	var out, errOut bytes.Buffer
	if code := run(f.args("--target-size", "0"), &out, &errOut); code != exitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
	if !strings.Contains(errOut.String(), "--target-size") {
		t.Fatalf("stderr should name the flag: %s", errOut.String())
	}
}
