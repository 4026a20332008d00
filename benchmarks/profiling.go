package benchmarks

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime"
	"runtime/pprof"

	"github.com/zeu5/grid-driving-vi/util"
)

var (
	cpuprofile string
	memprofile string
)

// startProfiling starts the CPU profile, if requested, and returns the
// function that stops it and writes the heap profile.
func startProfiling() (func() error, error) {
	noop := func() error { return nil }
	if cpuprofile == "" && memprofile == "" {
		return noop, nil
	}
	if err := util.EnsureDir(saveFile); err != nil {
		return noop, err
	}

	var cpuFile *os.File
	if cpuprofile != "" {
		cpuProfPath := path.Join(saveFile, cpuprofile)
		logger.Info("profiling CPU", slog.String("path", cpuProfPath))
		f, err := os.Create(cpuProfPath)
		if err != nil {
			return noop, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return noop, fmt.Errorf("could not start CPU profile: %w", err)
		}
		cpuFile = f
	}

	return func() error {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			if err := cpuFile.Close(); err != nil {
				return err
			}
		}
		if memprofile == "" {
			return nil
		}
		memProfPath := path.Join(saveFile, memprofile)
		logger.Info("profiling memory", slog.String("path", memProfPath))
		f, err := os.Create(memProfPath)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		return nil
	}, nil
}
