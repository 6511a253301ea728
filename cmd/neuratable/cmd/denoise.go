// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"strings"

	progressbar "github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mayjs/NeuraTable/lib/imageio"
	"github.com/mayjs/NeuraTable/lib/processor"
	"github.com/mayjs/NeuraTable/lib/runner"
	"github.com/mayjs/NeuraTable/lib/valuerange"
)

var denoiseCmd = &cobra.Command{
	Use:   "denoise IMAGE... OUTPUT_PATTERN",
	Short: "Denoise images with an ONNX model",
	Long: `Denoise one or more images through an ONNX denoising model.

The last argument is the output pattern; %NAME% is replaced with the input
filename without its extension. When the pattern has no extension, the
input's extension is inherited. Camera RAW inputs are developed through
darktable-cli, and EXIF metadata is carried over with exiftool when
installed.

Examples:
  # Single image
  neuratable denoise --model unet.onnx noisy.png clean.png

  # A whole shoot, keeping names and formats
  neuratable denoise --model unet.onnx shoot/*.RAF denoised/%NAME%.tif`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDenoise,
}

func init() {
	rootCmd.AddCommand(denoiseCmd)

	denoiseCmd.Flags().String("model", "", "path to the ONNX model (required)")
	denoiseCmd.Flags().Bool("force-cpu", false, "skip accelerator detection and run on CPU")
	denoiseCmd.Flags().Int("threads", 0, "CPU inference threads (0 = runtime default)")
	denoiseCmd.Flags().Int("chunk-padding", -1, "context margin around each tile (-1 = auto)")
	denoiseCmd.Flags().Int("overlap", -1, "seam overlap between tiles (-1 = auto)")
	denoiseCmd.Flags().String("input-range", "1.0", "model input value range, e.g. 1.0 or +-10")
	denoiseCmd.Flags().String("output-range", "1.0", "model output value range, e.g. 1.0 or +-10")
	denoiseCmd.Flags().String("color-model", "rgb", "channel order the model was trained with (rgb, bgr)")
	_ = denoiseCmd.MarkFlagRequired("model")

	mustBindPFlag("model", denoiseCmd.Flags().Lookup("model"))
	mustBindPFlag("force_cpu", denoiseCmd.Flags().Lookup("force-cpu"))
	mustBindPFlag("threads", denoiseCmd.Flags().Lookup("threads"))
}

func runDenoise(cmd *cobra.Command, args []string) error {
	images, pattern := args[:len(args)-1], args[len(args)-1]
	if len(images) > 1 && !strings.Contains(pattern, namePlaceholder) {
		return fmt.Errorf("OUTPUT_PATTERN must include %s when multiple IMAGE entries are used", namePlaceholder)
	}

	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	inputRangeFlag, _ := cmd.Flags().GetString("input-range")
	inputRange, err := valuerange.Parse(inputRangeFlag)
	if err != nil {
		return fmt.Errorf("invalid --input-range: %w", err)
	}
	outputRangeFlag, _ := cmd.Flags().GetString("output-range")
	outputRange, err := valuerange.Parse(outputRangeFlag)
	if err != nil {
		return fmt.Errorf("invalid --output-range: %w", err)
	}
	colorModelFlag, _ := cmd.Flags().GetString("color-model")
	colorModel, err := parseColorModel(colorModelFlag)
	if err != nil {
		return err
	}

	runnerOpts := []runner.Option{runner.WithLogger(logger)}
	if viper.GetBool("force_cpu") {
		runnerOpts = append(runnerOpts, runner.WithForceCPU())
	}
	if threads := viper.GetInt("threads"); threads > 0 {
		runnerOpts = append(runnerOpts, runner.WithNumThreads(threads))
	}

	r, err := runner.New(viper.GetString("model"), runnerOpts...)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	var bar *progressbar.ProgressBar
	procOpts := []processor.Option{
		processor.WithLogger(logger),
		processor.WithColorModel(colorModel),
		processor.WithProgress(func(done, total int) {
			if bar != nil {
				_ = bar.Add(1)
			}
		}),
	}
	if padding, _ := cmd.Flags().GetInt("chunk-padding"); padding >= 0 {
		procOpts = append(procOpts, processor.WithChunkPadding(padding))
	}
	if overlap, _ := cmd.Flags().GetInt("overlap"); overlap >= 0 {
		procOpts = append(procOpts, processor.WithOverlap(overlap))
	}

	proc, err := processor.New(r, inputRange, outputRange, procOpts...)
	if err != nil {
		return fmt.Errorf("building processor: %w", err)
	}

	metadata := imageio.NewMetadataHandler(logger)

	fmt.Printf("Starting image processing for %d images...\n", len(images))
	for _, input := range images {
		output, err := renderOutputPattern(input, pattern)
		if err != nil {
			return err
		}

		img, err := imageio.Load(input, logger)
		if err != nil {
			return fmt.Errorf("loading %s: %w", input, err)
		}

		bar = newTileBar(proc, img)
		result, err := proc.Process(img)
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
		if err != nil {
			return fmt.Errorf("processing %s: %w", input, err)
		}

		if err := imageio.Save(result, output); err != nil {
			return fmt.Errorf("saving %s: %w", output, err)
		}
		if err := metadata.CopyMetadata(input, output); err != nil {
			logger.Warn("could not copy metadata", zap.String("input", input), zap.Error(err))
		}
		fmt.Printf("Done: %s -> %s\n", input, output)
	}
	return nil
}

func newTileBar(proc *processor.Processor, img *imageio.Image) *progressbar.ProgressBar {
	total := proc.NumTiles(img.Width, img.Height)
	if total <= 0 {
		return nil
	}
	return progressbar.New(total)
}

func parseColorModel(s string) (processor.ColorModel, error) {
	switch strings.ToLower(s) {
	case "rgb":
		return processor.ColorModelRGB, nil
	case "bgr":
		return processor.ColorModelBGR, nil
	default:
		return "", fmt.Errorf("unknown color model %q (expected rgb or bgr)", s)
	}
}
