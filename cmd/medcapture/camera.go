package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"medcapture/internal/camera"
	"medcapture/internal/config"
	"medcapture/internal/logger"
	"medcapture/internal/opencv"
)

func runCamera(cfg config.Config, log logger.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("camera", flag.ContinueOnError)
	fs.SetOutput(stderr)
	facing := fs.String("facing", string(cfg.Camera.Facing), "user (front) or environment (rear)")
	outDir := fs.String("out", ".", "directory for the captured images")
	warmup := fs.Int("warmup", 5, "frames to discard while the sensor settles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := camera.ParseFacing(*facing)
	if err != nil {
		return err
	}
	camCfg := cfg.Camera
	camCfg.Facing = f

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := camera.NewSession(camCfg, opencv.OpenCamera, log)
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	for i := 0; i < *warmup; i++ {
		if _, err := session.Capture(); err != nil {
			return err
		}
	}

	p := newPipeline(cfg, log, newTracker(log))
	res, err := p.CaptureFrom(ctx, session)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102-150405")
	rep := fileReport{File: fmt.Sprintf("camera:%s", f), Result: res}
	outputs := []struct {
		name string
		data []byte
	}{
		{"capture-" + stamp + ".jpg", res.Original.Data},
		{"capture-" + stamp + ".compressed.jpg", res.Compressed.Data},
	}
	for _, o := range outputs {
		out := filepath.Join(*outDir, o.name)
		if err := os.WriteFile(out, o.data, 0o644); err != nil {
			return err
		}
		rep.Written = append(rep.Written, out)
	}

	printReport(stdout, rep)
	return nil
}
