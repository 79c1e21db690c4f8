// Package thumbnail generates video poster frames with ffmpeg and runs the
// generation off the request path through a small in-process worker pool.
package thumbnail

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// GeneratorConfig holds configuration for the ffmpeg generator.
type GeneratorConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// Width is the thumbnail width in pixels. Height is calculated
	// automatically to maintain aspect ratio.
	// Default: 320
	Width int

	// SeekSeconds is the timestamp of the captured frame.
	// Default: 1.0
	SeekSeconds float64

	// Quality is the JPEG quality passed as -q:v (2 best, 31 worst).
	// Default: 4
	Quality int
}

// DefaultGeneratorConfig returns a GeneratorConfig with production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		FFmpegPath:  "ffmpeg",
		Width:       320,
		SeekSeconds: 1.0,
		Quality:     4,
	}
}

// Generator defines the interface for thumbnail generation.
type Generator interface {
	// Generate captures one frame of the input video and writes it as a
	// JPEG to outputPath. The output directory is created if missing.
	Generate(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegGenerator implements Generator using the ffmpeg CLI.
type FFmpegGenerator struct {
	config GeneratorConfig
}

// Compile-time verification that FFmpegGenerator implements Generator.
var _ Generator = (*FFmpegGenerator)(nil)

// NewFFmpegGenerator creates an ffmpeg-based thumbnail generator.
func NewFFmpegGenerator(cfg GeneratorConfig) *FFmpegGenerator {
	return &FFmpegGenerator{config: cfg}
}

// Generate executes ffmpeg as a subprocess and waits for completion.
func (g *FFmpegGenerator) Generate(ctx context.Context, inputPath, outputPath string) error {
	if err := g.validateInput(inputPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}

	args := g.buildArgs(inputPath, outputPath)

	cmd := exec.CommandContext(ctx, g.config.FFmpegPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil // ffmpeg writes progress to stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("thumbnail generation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	return nil
}

// validateInput checks that the input file exists and is a regular file.
func (g *FFmpegGenerator) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// buildArgs constructs the ffmpeg command arguments.
func (g *FFmpegGenerator) buildArgs(inputPath, outputPath string) []string {
	// Scale filter: -2 keeps the height divisible by 2.
	scaleFilter := fmt.Sprintf("scale=%d:-2", g.config.Width)

	return []string{
		"-ss", strconv.FormatFloat(g.config.SeekSeconds, 'f', 2, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", scaleFilter,
		"-q:v", strconv.Itoa(g.config.Quality),
		"-y", // Overwrite output files without asking
		outputPath,
	}
}
