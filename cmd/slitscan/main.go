//go:build !ios && !android && (amd64 || arm64)

// Command slitscan swaps the horizontal and temporal axes of a video.
//
// Usage:
//
//	slitscan <input> <output>
//
// The input may be any container and codec FFmpeg can decode; the output is
// always H.264 in the container implied by the output path's extension.
package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/obinnaokechukwu/slitscan"
)

// parseArgs enforces the two-positional-argument contract.
func parseArgs(args []string) (inputPath, outputPath string, ok bool) {
	if len(args) != 3 {
		return "", "", false
	}
	return args[1], args[2], true
}

func main() {
	inputPath, outputPath, ok := parseArgs(os.Args)
	if !ok {
		fmt.Fprintf(os.Stderr, "usage: %s <input> <output>\n", os.Args[0])
		os.Exit(1)
	}

	logrus.SetOutput(os.Stderr)

	if err := slitscan.Init(); err != nil {
		logrus.WithError(err).Fatal("failed to load FFmpeg libraries")
	}
	logrus.WithField("ffmpeg", slitscan.Version()).Debug("libraries loaded")

	decodeBar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("decoding"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)
	var encodeBar *progressbar.ProgressBar

	result, err := slitscan.Run(inputPath, outputPath,
		slitscan.WithDecodeProgress(func(frames int) {
			decodeBar.Add(1)
		}),
		slitscan.WithEncodeProgress(func(done, total int) {
			if encodeBar == nil {
				decodeBar.Finish()
				fmt.Fprintln(os.Stderr)
				encodeBar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("encoding"),
					progressbar.OptionShowCount(),
				)
			}
			encodeBar.Set(done)
		}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr)
		logrus.WithError(err).Fatal("transpose failed")
	}
	if encodeBar != nil {
		encodeBar.Finish()
	}
	fmt.Fprintln(os.Stderr)

	logrus.WithFields(logrus.Fields{
		"frames_in":  result.FramesIn,
		"frames_out": result.FramesOut,
		"geometry":   fmt.Sprintf("%dx%d", result.OutWidth, result.OutHeight),
		"padded":     result.Padded,
	}).Info("wrote transposed video")
}
