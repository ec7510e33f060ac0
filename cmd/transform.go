package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	wav "github.com/youpy/go-wav"

	"github.com/friendsincode/audioengine/pkg/decode"
	"github.com/friendsincode/audioengine/pkg/resample"
)

var transformCmd = &cobra.Command{
	Use:   "transform <input_file>",
	Short: "Transform audio file sample rate and format",
	Long: `Transform audio files to different sample rates and convert to WAV format,
using the same decoder/resampler components the playback engine uses.

Examples:
  # Transform MP3 to 48kHz WAV
  audioengine transform input.mp3 --new-samplerate 48000 --out output.wav

  # Transform FLAC to 44.1kHz mono WAV
  audioengine transform input.flac --new-samplerate 44100 --mono --out output.wav

Supported Input Formats: everything pkg/decode registers (mp3, flac, wav,
aiff, ogg, opus; aac/m4a extensions are recognized but unsupported).

Output Format: WAV, at the input's own bit depth.`,
	Args: cobra.ExactArgs(1),
	Run:  runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().Int("new-samplerate", 48000, "Target sample rate in Hz")
	transformCmd.Flags().String("out", "out_transformed.wav", "Output WAV file path")
	transformCmd.Flags().Bool("mono", false, "Convert output to mono signal (average channels)")
}

func runTransform(cmd *cobra.Command, args []string) {
	inFileName := args[0]

	newSampleRate, err := cmd.Flags().GetInt("new-samplerate")
	if err != nil {
		slog.Error("failed to get new-samplerate flag", "error", err)
		os.Exit(1)
	}
	outFileName, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("failed to get out flag", "error", err)
		os.Exit(1)
	}
	convertToMono, err := cmd.Flags().GetBool("mono")
	if err != nil {
		slog.Error("failed to get mono flag", "error", err)
		os.Exit(1)
	}
	if newSampleRate <= 0 || newSampleRate > 384000 {
		slog.Error("invalid sample rate", "rate", newSampleRate, "valid_range", "1-384000")
		os.Exit(1)
	}

	dec, err := decode.Open(inFileName)
	if err != nil {
		slog.Error("failed to open decoder", "error", err)
		os.Exit(1)
	}
	defer dec.Close()

	inSampleRate, channels, bitsPerSample := dec.Format()
	slog.Info("transforming audio",
		"input_file", inFileName,
		"input_sample_rate", inSampleRate,
		"input_channels", channels,
		"input_bits_per_sample", bitsPerSample,
		"output_sample_rate", newSampleRate,
		"output_mono", convertToMono,
		"output_file", outFileName)

	resampled, totalSamples, err := decodeAndResample(dec, inSampleRate, newSampleRate, channels, bitsPerSample)
	if err != nil {
		slog.Error("failed to decode/resample audio", "error", err)
		os.Exit(1)
	}

	bytesPerSample := bitsPerSample / 8
	outChannels := channels
	outputData := resampled
	if convertToMono && channels > 1 && bitsPerSample == 16 {
		outputData = convertToMono16Bit(resampled, channels)
		outChannels = 1
	}
	outSamples := len(outputData) / (outChannels * bytesPerSample)

	slog.Info("writing output WAV file", "path", outFileName, "output_samples", outSamples)
	if err := writeWAVFile(outFileName, outputData, uint32(outSamples), uint16(outChannels), uint32(newSampleRate), uint16(bitsPerSample)); err != nil {
		slog.Error("failed to write WAV file", "error", err)
		os.Exit(1)
	}

	slog.Info("transformation complete",
		"input_samples", totalSamples,
		"output_samples", outSamples,
		"sample_rate_ratio", fmt.Sprintf("%.3f", float64(newSampleRate)/float64(inSampleRate)))
}

// decodeAndResample drains dec in chunks, pushing each through a streaming
// resampler, and returns the full resampled PCM plus the input sample count.
func decodeAndResample(dec decode.Decoder, fromRate, toRate, channels, bitsPerSample int) ([]byte, int, error) {
	const chunkSamples = 25_000
	frameSize := channels * (bitsPerSample / 8)

	resamp, err := resample.New(fromRate, toRate, channels, bitsPerSample)
	if err != nil {
		return nil, 0, fmt.Errorf("build resampler: %w", err)
	}

	buf := make([]byte, chunkSamples*frameSize)
	out := make([]byte, 0, len(buf)*4)
	totalSamples := 0

	for {
		n, derr := dec.DecodeSamples(chunkSamples, buf)
		if n > 0 {
			chunk, rerr := resamp.Push(buf[:n*frameSize])
			if rerr != nil {
				return nil, 0, rerr
			}
			out = append(out, chunk...)
			totalSamples += n
		}
		if derr != nil || n == 0 {
			break
		}
	}

	tail, err := resamp.Flush()
	if err != nil {
		return nil, 0, fmt.Errorf("flush resampler: %w", err)
	}
	out = append(out, tail...)
	return out, totalSamples, nil
}

// convertToMono16Bit converts interleaved 16-bit audio to mono by averaging
// channels.
func convertToMono16Bit(stereoData []byte, channels int) []byte {
	if channels <= 1 {
		return stereoData
	}

	monoSize := len(stereoData) / channels
	monoData := make([]byte, monoSize)

	idx, outIdx := 0, 0
	for idx < len(stereoData) {
		sum := int32(0)
		for ch := 0; ch < channels; ch++ {
			if idx+1 >= len(stereoData) {
				break
			}
			b0 := int16(stereoData[idx])
			b1 := int16(stereoData[idx+1])
			sample := int16((b1 << 8) | b0)
			sum += int32(sample)
			idx += 2
		}
		avgSample := int16(sum / int32(channels))
		if outIdx+1 < len(monoData) {
			monoData[outIdx] = byte(avgSample & 0xFF)
			monoData[outIdx+1] = byte((avgSample >> 8) & 0xFF)
			outIdx += 2
		}
	}
	return monoData
}

// writeWAVFile writes audio data to a WAV file.
func writeWAVFile(fileName string, audioData []byte, numSamples uint32, numChannels uint16, sampleRate uint32, bitsPerSample uint16) error {
	fOut, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer fOut.Close()

	wavWriter := wav.NewWriter(fOut, numSamples, numChannels, sampleRate, bitsPerSample)
	if _, err := wavWriter.Write(audioData); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}
