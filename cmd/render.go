package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/passes"
	"github.com/df07/go-restir-passes/pkg/renderer"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/script"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderOptions collects the render command flags
type RenderOptions struct {
	Scene     string
	Graph     string // Built-in graph name or path to a .json script
	Width     int
	Height    int
	Frames    int   // 0 renders up to the last captured frame
	Capture   []int // Empty uses the script's capture frames
	OutDir    string
	Format    string // png or tiff
	Instances int    // Overrides numReSTIRInstances when positive
}

// capturedImage is one file written by a render
type capturedImage struct {
	Frame  uint32
	Output string
	Path   string
	Stats  renderer.FrameStats
	Time   time.Duration
}

// Render a graph over a sequence of frames and write the captured outputs.
func RenderGraph(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := RenderOptions{
		Scene:     ctx.String("scene"),
		Graph:     ctx.String("graph"),
		Width:     ctx.Int("width"),
		Height:    ctx.Int("height"),
		Frames:    ctx.Int("frames"),
		Capture:   ctx.IntSlice("capture"),
		OutDir:    ctx.String("out"),
		Format:    ctx.String("format"),
		Instances: ctx.Int("instances"),
	}

	images, err := render(context.Background(), opts)
	if err != nil {
		logger.Error(err)
		return err
	}
	displayCaptureStats(images)
	return nil
}

// buildGraph resolves and builds the graph script, applying the instance override
func buildGraph(name string, instances int) (*graph.Graph, *script.Script, error) {
	s, err := script.Resolve(name)
	if err != nil {
		return nil, nil, err
	}
	if instances > 0 {
		s.SetInstances(instances)
	}
	g, err := s.Build(passes.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	return g, s, nil
}

func render(ctx context.Context, opts RenderOptions) ([]capturedImage, error) {
	ext, err := imageExtension(opts.Format)
	if err != nil {
		return nil, err
	}

	sc, err := scene.Load(opts.Scene)
	if err != nil {
		return nil, err
	}
	g, s, err := buildGraph(opts.Graph, opts.Instances)
	if err != nil {
		return nil, err
	}

	capture := opts.Capture
	if len(capture) == 0 {
		capture = s.CaptureFrames
	}
	frames := opts.Frames
	if frames <= 0 {
		frames = 1
		for _, f := range capture {
			frames = max(frames, f+1)
		}
	}
	wanted := map[uint32]bool{}
	for _, f := range capture {
		if f >= frames {
			logger.Warningf("capture frame %d is past the last frame %d", f, frames-1)
		}
		wanted[uint32(f)] = true
	}

	cfg := renderer.DefaultFrameConfig()
	cfg.Width, cfg.Height, cfg.Frames = opts.Width, opts.Height, frames
	fr, err := renderer.NewFrameRenderer(g, sc, cfg)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	dir := filepath.Join(opts.OutDir, s.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	logger.Noticef("rendering %q with graph %q: %d frames at %dx%d", opts.Scene, s.Name, frames, opts.Width, opts.Height)
	var images []capturedImage
	for frame := 0; frame < frames; frame++ {
		result, err := fr.RenderFrame(ctx)
		if err != nil {
			return images, err
		}
		if len(wanted) > 0 && !wanted[result.FrameIndex] {
			continue
		}
		for _, output := range g.Outputs() {
			tex := g.Output(output)
			path := filepath.Join(dir, fmt.Sprintf("%s.%s.%d%s", sceneFileName(opts.Scene), output, result.FrameIndex, ext))
			if err := tex.Save(path); err != nil {
				return images, err
			}
			logger.Infof("wrote %s", path)
			images = append(images, capturedImage{
				Frame:  result.FrameIndex,
				Output: output,
				Path:   path,
				Stats:  renderer.ComputeFrameStats(tex),
				Time:   result.Duration,
			})
		}
	}
	return images, nil
}

func imageExtension(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "png":
		return ".png", nil
	case "tif", "tiff":
		return ".tiff", nil
	default:
		return "", errors.New("unsupported image format " + format + " (use png or tiff)")
	}
}

// sceneFileName turns a scene id such as "ply:models/bunny.ply" into a file name prefix
func sceneFileName(id string) string {
	if path, ok := strings.CutPrefix(id, "ply:"); ok {
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return id
}

func displayCaptureStats(images []capturedImage) {
	if len(images) == 0 {
		logger.Notice("no frames captured")
		return
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frame", "Output", "Mean luminance", "Max luminance", "NaN/Inf", "Frame time", "File"})
	for _, img := range images {
		table.Append([]string{
			fmt.Sprintf("%d", img.Frame),
			img.Output,
			fmt.Sprintf("%.4f", img.Stats.MeanLuminance),
			fmt.Sprintf("%.4f", img.Stats.MaxLuminance),
			fmt.Sprintf("%d", img.Stats.InvalidPixels),
			img.Time.Round(time.Millisecond).String(),
			img.Path,
		})
	}
	table.Render()
	logger.Noticef("captured frames\n%s", buf.String())
}
