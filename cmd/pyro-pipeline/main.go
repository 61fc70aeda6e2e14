// Command pyro-pipeline runs the dataset curation pipeline described by a
// YAML descriptor, re-executing only the stages whose inputs changed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Chouffe/pyro-dataset/internal/logging"
	"github.com/Chouffe/pyro-dataset/internal/pipeline"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// stageList collects repeated --stage flags.
type stageList []string

func (s *stageList) String() string { return strings.Join(*s, ",") }

func (s *stageList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("stage name must not be empty")
	}
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pyro-pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var stages stageList
	var (
		pipelinePath = fs.String("pipeline", "pipeline.yaml", "pipeline descriptor to run")
		lockPath     = fs.String("lock", "pipeline.lock", "lock file recording digests of past runs")
		workdir      = fs.String("workdir", ".", "directory stage commands run in")
		jobs         = fs.Int("jobs", 1, "maximum number of stages running at once")
		force        = fs.Bool("force", false, "re-run selected stages even when up to date")
		dryRun       = fs.Bool("dry-run", false, "print the plan without running anything")
		reportPath   = fs.String("report", "", "write the run report as JSON to this path")
		loglevel     = fs.String("loglevel", "info", "log level (debug, info, warning, error)")
	)
	fs.Var(&stages, "stage", "run only this stage and its upstream closure (repeatable)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level, err := logging.ParseLevel(*loglevel)
	if err != nil {
		fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
		return exitUsage
	}
	log := logging.New(stderr, level)

	if *jobs < 1 {
		fmt.Fprintln(stderr, "pyro-pipeline: --jobs must be at least 1")
		return exitUsage
	}

	desc, err := pipeline.LoadDescriptor(*pipelinePath)
	if err != nil {
		fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
		return exitUsage
	}
	graph, err := desc.Graph()
	if err != nil {
		fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
		return exitUsage
	}
	lock, err := pipeline.LoadLock(*lockPath)
	if err != nil {
		fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
		return exitUsage
	}

	runner := &pipeline.Runner{
		Graph:    graph,
		Lock:     lock,
		LockPath: *lockPath,
		WorkDir:  *workdir,
		Force:    *force,
		Jobs:     *jobs,
		Targets:  stages,
		Stdout:   stdout,
		Stderr:   stderr,
		Log:      log,
	}

	if *dryRun {
		decisions, err := runner.Plan()
		if err != nil {
			fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
			return exitUsage
		}
		for _, dec := range decisions {
			if dec.Stale {
				fmt.Fprintf(stdout, "run         %s (%s)\n", dec.Stage, dec.Reason)
			} else {
				fmt.Fprintf(stdout, "up-to-date  %s\n", dec.Stage)
			}
		}
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := runner.Run(ctx)
	if err != nil {
		var missing *pipeline.MissingDepError
		if errors.Is(err, pipeline.ErrInvalidPipeline) || errors.As(err, &missing) {
			fmt.Fprintf(stderr, "pyro-pipeline: %v\n", err)
			return exitUsage
		}
		log.Error("pipeline run failed", "error", err)
		return exitFailure
	}

	if *reportPath != "" {
		f, err := os.Create(*reportPath)
		if err != nil {
			log.Error("writing report failed", "path", *reportPath, "error", err)
			return exitFailure
		}
		werr := rep.WriteJSON(f)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			log.Error("writing report failed", "path", *reportPath, "error", werr)
			return exitFailure
		}
	}

	for _, sr := range rep.Stages {
		log.Debug("stage finished", "stage", sr.Stage, "state", string(sr.State), "reason", sr.Reason)
	}
	if rep.Failed {
		return exitFailure
	}
	return exitOK
}
