package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/loaders"
	"github.com/df07/go-csg-pathtracer/pkg/renderer"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// options holds the command line flags
type options struct {
	scene   string
	width   int
	height  int
	samples int
	bounces int
	workers int
	seed    int64
	out     string
	watch   bool
	verbose bool
	set     map[string]bool // flags given explicitly
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pathtracer", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.scene, "scene", "default", "Built-in scene ('default', 'golf-ball'), a scene name under scenes/, or a .json/.yaml/.toml file")
	fs.IntVar(&opts.width, "width", 0, "Image width (0 = scene setting)")
	fs.IntVar(&opts.height, "height", 0, "Image height (0 = scene setting)")
	fs.IntVar(&opts.samples, "samples", 0, "Paths per pixel (0 = scene setting)")
	fs.IntVar(&opts.bounces, "bounces", 0, "Maximum bounces per path (0 = scene setting)")
	fs.IntVar(&opts.workers, "workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	fs.Int64Var(&opts.seed, "seed", renderer.DefaultConfig().Seed, "Random seed for the scene layout and the render")
	fs.StringVar(&opts.out, "out", "", "Output image (.png, .bmp, .tif); default output/<scene>/render_<timestamp>.png")
	fs.BoolVar(&opts.watch, "watch", false, "Re-render whenever the scene file changes")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(output, "CSG Path Tracer")
		fmt.Fprintln(output, "Usage: pathtracer [options]")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Available scenes:")
		for _, info := range scene.BuiltInScenes() {
			fmt.Fprintf(output, "  %-10s - %s\n", info.ID, info.Description)
		}
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	job, err := loadJob(opts)
	if err != nil {
		return err
	}

	r := renderer.NewRenderer(job.config, core.NewSlogLogger(logger))
	defer r.Close()

	if opts.watch {
		if job.path == "" {
			return fmt.Errorf("-watch needs a scene file, %q is built in", opts.scene)
		}
		return watchAndRender(ctx, r, opts, job, logger)
	}

	_, err = renderAndSave(ctx, r, job, opts.out, logger)
	return err
}

// renderJob is everything one render needs
type renderJob struct {
	name   string
	path   string // scene file, empty for built-in scenes
	scene  *scene.Scene
	camera *geometry.Camera
	config renderer.Config
	width  int
	height int
}

// loadJob builds the scene and merges its render settings with the flags
func loadJob(opts options) (*renderJob, error) {
	path, err := resolveScenePath(opts.scene)
	if err != nil {
		return nil, err
	}

	job := &renderJob{name: opts.scene, path: path, config: renderer.DefaultConfig()}
	job.config.Seed = opts.seed

	if path == "" {
		job.scene, err = scene.NewBuiltInScene(opts.scene, opts.seed)
		if err != nil {
			return nil, err
		}
	} else {
		var desc *loaders.SceneDescription
		job.scene, desc, err = loaders.LoadScene(path)
		if err != nil {
			return nil, err
		}
		job.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if desc.Render != nil {
			job.config.Workers = desc.Render.Workers
			if desc.Render.Seed != 0 && !opts.set["seed"] {
				job.config.Seed = desc.Render.Seed
			}
		}
	}

	sc := job.scene.SamplingConfig
	job.width, job.height = sc.Width, sc.Height
	job.config.Samples, job.config.Bounces = sc.Samples, sc.Bounces
	cameraConfig := job.scene.CameraConfig

	if opts.width > 0 {
		job.width = opts.width
	}
	if opts.height > 0 {
		job.height = opts.height
	}
	if opts.width > 0 || opts.height > 0 {
		cameraConfig.AspectRatio = float64(job.width) / float64(job.height)
	}
	if opts.samples > 0 {
		job.config.Samples = opts.samples
	}
	if opts.bounces > 0 {
		job.config.Bounces = opts.bounces
	}
	if opts.workers > 0 {
		job.config.Workers = opts.workers
	}

	if err := cameraConfig.Validate(); err != nil {
		return nil, err
	}
	job.camera = geometry.NewCamera(cameraConfig)
	return job, nil
}

// resolveScenePath returns the scene file for name, or "" for a built-in scene
func resolveScenePath(name string) (string, error) {
	if name == "" {
		return "", errors.New("no scene given")
	}
	if _, err := loaders.FormatFromPath(name); err == nil {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("scene file: %w", err)
		}
		return name, nil
	}

	for _, info := range scene.BuiltInScenes() {
		if info.ID == name {
			return "", nil
		}
	}

	files, err := scene.ListSceneFiles()
	if err != nil {
		return "", err
	}
	for _, info := range files {
		if info.ID == "file:"+name {
			return info.FilePath, nil
		}
	}
	return "", fmt.Errorf("unknown scene %q", name)
}

// renderAndSave renders job to completion and writes the image.
// It returns the path written.
func renderAndSave(ctx context.Context, r *renderer.Renderer, job *renderJob, out string, logger *slog.Logger) (string, error) {
	buffer := make([]byte, job.width*job.height*4)
	if err := r.Start(job.camera, job.scene, buffer, job.width, job.height); err != nil {
		return "", err
	}

	if err := r.Wait(ctx); err != nil {
		r.Stop()
		return "", err
	}
	return save(job, buffer, out, logger)
}

func save(job *renderJob, buffer []byte, out string, logger *slog.Logger) (string, error) {
	if out == "" {
		timestamp := time.Now().Format("20060102_150405")
		out = filepath.Join("output", job.name, fmt.Sprintf("render_%s.png", timestamp))
	}
	if err := loaders.SaveImage(out, buffer, job.width, job.height); err != nil {
		return "", err
	}
	logger.Info("render saved", "file", out, "width", job.width, "height", job.height)
	return out, nil
}
