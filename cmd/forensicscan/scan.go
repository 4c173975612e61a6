package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/mycophonic/transcodescan"
	"github.com/mycophonic/transcodescan/batch"
)

// Exit codes mirror the verdict severity of the worst file scanned.
const (
	exitOK        = 0
	exitSuspect   = 1
	exitTranscode = 2
)

var errNoFiles = errors.New("expected at least one file path")

func scanCommand(logger zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "analyze one or more audio files and report a forensic verdict",
		ArgsUsage: "<file> [file...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "suspect-threshold",
				Value: transcodescan.DefaultSuspectThreshold,
				Usage: "combined score at or above which the verdict becomes SUSPECT",
			},
			&cli.IntFlag{
				Name:  "transcode-threshold",
				Value: transcodescan.DefaultTranscodeThreshold,
				Usage: "combined score at or above which the verdict becomes TRANSCODE",
			},
			&cli.IntFlag{
				Name:  "fft-size",
				Value: transcodescan.DefaultFFTSize,
				Usage: "FFT window size in samples, must be a power of two",
			},
			&cli.IntFlag{
				Name:  "max-frames",
				Value: transcodescan.DefaultMaxFrames,
				Usage: "maximum MP3 frames the binary analyzer walks",
			},
			&cli.BoolFlag{
				Name:  "skip-spectral",
				Usage: "skip FFT/CFCC analysis and report only binary evidence",
			},
			&cli.BoolFlag{
				Name:  "spectrogram",
				Usage: "include the per-window band-energy spectrogram in the output",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "emit one JSON object per line instead of a text summary",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runScan(ctx, cmd, logger)
		},
	}
}

func runScan(ctx context.Context, cmd *cli.Command, logger zerolog.Logger) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errNoFiles
	}

	opts := transcodescan.Options{
		SuspectThreshold:   cmd.Int("suspect-threshold"),
		TranscodeThreshold: cmd.Int("transcode-threshold"),
		FFTSize:            cmd.Int("fft-size"),
		MaxFrames:           cmd.Int("max-frames"),
		SkipSpectral:       cmd.Bool("skip-spectral"),
		IncludeSpectrogram: cmd.Bool("spectrogram"),
	}

	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	outcomes := batch.Run(ctx, paths, opts, logger)

	asJSON := cmd.Bool("json")
	worst := exitOK

	for _, o := range outcomes {
		if o.Err != nil {
			logger.Error().Err(o.Err).Str("path", o.Path).Msg("scan: analysis failed")

			worst = exitTranscode

			continue
		}

		if asJSON {
			if err := printJSON(o.Result); err != nil {
				return err
			}
		} else {
			printText(o.Result)
		}

		if level := exitLevel(o.Result.Verdict); level > worst {
			worst = level
		}
	}

	return cli.Exit("", worst)
}

func exitLevel(v transcodescan.Verdict) int {
	switch v {
	case transcodescan.VerdictTranscode:
		return exitTranscode
	case transcodescan.VerdictSuspect:
		return exitSuspect
	default:
		return exitOK
	}
}

func printJSON(result transcodescan.AnalysisResult) error {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	return nil
}

func printText(result transcodescan.AnalysisResult) {
	fmt.Printf("%s: %s (score %d) — %s\n", result.Path, result.Verdict, result.Score, result.Reason)

	for _, f := range result.Flags {
		fmt.Printf("  - %s\n", f)
	}
}
