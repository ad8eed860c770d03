// Package file implements the single-file analysis command.
package file

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siglab/siglab-go/internal/audiofile"
	"github.com/siglab/siglab-go/internal/conf"
	"github.com/siglab/siglab-go/internal/dsp"
)

// Command creates a new file command for analyzing a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file [input.wav]",
		Short: "Analyze a WAV file for aliasing",
		Long:  `Resample a WAV file to a target rate, report the aliasing metadata and optionally write the repackaged playback audio.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return analyzeFile(settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().IntVarP(&settings.Input.TargetRate, "target-rate", "r", 0, "Target sample rate in Hz (0 keeps the original rate)")
	cmd.Flags().StringVarP(&settings.Input.Output, "output", "o", "", "Path to write the repackaged playback WAV")
}

func analyzeFile(settings *conf.Settings) error {
	data, err := os.ReadFile(settings.Input.Path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", settings.Input.Path, err)
	}

	decoded, err := audiofile.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", settings.Input.Path, err)
	}

	pipeline := dsp.Pipeline{
		AliasingThreshold: settings.Audio.AliasingThreshold,
		MinPlaybackRate:   settings.Audio.MinPlaybackRate,
		TargetRMS:         settings.Audio.TargetRMS,
		SoftClipKnee:      settings.Audio.SoftClipKnee,
	}

	result, err := pipeline.ResampleForAnalysis(decoded.Samples, decoded.SampleRate, settings.Input.TargetRate)
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", settings.Input.Path)
	fmt.Printf("Original rate:    %d Hz\n", decoded.SampleRate)
	fmt.Printf("Analysis rate:    %d Hz\n", result.Rate)
	fmt.Printf("Duration:         %.3f s\n", float64(len(result.Samples))/float64(result.Rate))
	fmt.Printf("Nyquist:          %.1f Hz\n", result.NyquistFrequency)
	fmt.Printf("Resampled:        %v\n", result.WasResampled)
	fmt.Printf("Aliasing:         %v\n", result.IsAliasing)

	if settings.Input.Output == "" {
		return nil
	}

	payload, err := pipeline.PreparePlayback(result.Samples, result.Rate, dsp.ModePlayback)
	if err != nil {
		return err
	}
	wavData, err := audiofile.EncodePCM16WAV(payload.Samples, payload.Rate)
	if err != nil {
		return err
	}
	if err := os.WriteFile(settings.Input.Output, wavData, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", settings.Input.Output, err)
	}
	fmt.Printf("Playback audio written to %s (%d Hz, upsampled: %v)\n",
		settings.Input.Output, payload.Rate, payload.WasUpsampled)
	return nil
}
