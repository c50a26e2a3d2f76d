package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"medcapture/internal/config"
	"medcapture/internal/logger"
	"medcapture/internal/pipeline"
)

type fileReport struct {
	File    string           `json:"file"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Written []string         `json:"written,omitempty"`
}

func runAnalyze(cfg config.Config, log logger.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print one JSON object per file")
	outDir := fs.String("out", "", "write <name>.compressed.jpg into this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("analyze: no input files")
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
	}

	p := newPipeline(cfg, log, newTracker(log))
	ctx := context.Background()
	enc := json.NewEncoder(stdout)

	failed := 0
	for _, path := range fs.Args() {
		rep := analyzeFile(ctx, p, path, *outDir)
		if rep.Error != "" {
			failed++
		}
		if *asJSON {
			if err := enc.Encode(rep); err != nil {
				return err
			}
			continue
		}
		printReport(stdout, rep)
	}

	if failed > 0 {
		return fmt.Errorf("analyze: %d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func analyzeFile(ctx context.Context, p *pipeline.Pipeline, path, outDir string) fileReport {
	rep := fileReport{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	res, err := p.ProcessEncoded(ctx, data)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Result = res

	if outDir != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out := filepath.Join(outDir, base+".compressed.jpg")
		if err := os.WriteFile(out, res.Compressed.Data, 0o644); err != nil {
			rep.Error = err.Error()
			return rep
		}
		rep.Written = append(rep.Written, out)
	}
	return rep
}

func printReport(w io.Writer, rep fileReport) {
	if rep.Error != "" {
		fmt.Fprintf(w, "%s: error: %s\n", rep.File, rep.Error)
		return
	}
	res := rep.Result
	q := res.Quality

	verdict := "good"
	if res.Advisory != nil {
		verdict = "poor (captured anyway)"
	}
	fmt.Fprintf(w, "%s: %s\n", rep.File, verdict)
	fmt.Fprintf(w, "  brightness %.3f  contrast %.3f  clarity %.3f  overall %.3f\n",
		q.Brightness, q.Contrast, q.Clarity, q.Overall)
	fmt.Fprintf(w, "  %s: %s\n", q.Suggestion.Kind, q.Suggestion.Text)
	fmt.Fprintf(w, "  original %dx%d %.1f KB, compressed %dx%d %.1f KB (%.0f%% smaller)\n",
		res.Original.Width, res.Original.Height, float64(res.Original.Size)/1024,
		res.Compressed.Width, res.Compressed.Height, float64(res.Compressed.Size)/1024,
		res.Savings()*100)
	for _, out := range rep.Written {
		fmt.Fprintf(w, "  wrote %s\n", out)
	}
}
