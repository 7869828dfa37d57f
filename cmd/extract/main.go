package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/agent/ocr"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/internal/service/analysis"
	"github.com/feichai0017/content-analyzer/internal/service/extraction"
	"github.com/feichai0017/content-analyzer/pkg/converters"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

type options struct {
	path    string
	json    bool
	analyze bool
	quiet   bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: extract [flags] <pdf-or-image>\n")
		flag.PrintDefaults()
	}
	flag.BoolVar(&opts.json, "json", false, "Print the full report as JSON")
	flag.BoolVar(&opts.analyze, "analyze", false, "Include hashtags, top words and suggestions")
	flag.BoolVar(&opts.quiet, "quiet", false, "Do not print progress to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing input path")
	}
	opts.path = flag.Arg(0)
	return opts, nil
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	cfg, err := config.GetAppConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	log := logger.NewNopLogger()
	engine, err := ocr.NewEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closer, ok := engine.(io.Closer); ok {
		defer closer.Close()
	}

	pipelineCfg, err := extraction.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	pipeline := extraction.NewPipeline(agent.NewSourceFactory(log), engine, pipelineCfg, log)

	var observer extraction.Observer
	if !opts.quiet {
		observer = func(s models.ProgressState) {
			if s.TotalPages > 0 {
				fmt.Fprintf(stderr, "[%3d%%] %s\n", s.PercentComplete, s.StatusMessage)
				return
			}
			fmt.Fprintf(stderr, "       %s\n", s.StatusMessage)
		}
	}

	result, err := pipeline.Extract(ctx, data, opts.path, observer)
	if err != nil {
		return err
	}

	return render(stdout, result, opts)
}

func render(w io.Writer, result *models.ExtractionResult, opts options) error {
	var summary *models.AnalysisResult
	if opts.analyze {
		a := analysis.Analyze(result.Text)
		summary = &a
	}

	if opts.json {
		report, err := converters.NewReportConverter().Convert(result, summary)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report.WithFile(filepath.Base(opts.path), 0, ""))
	}

	fmt.Fprintln(w, result.Text)
	if summary != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hashtags:")
		for _, tc := range summary.Hashtags {
			fmt.Fprintf(w, "  %s (%d)\n", tc.Term, tc.Count)
		}
		fmt.Fprintln(w, "Top words:")
		for _, tc := range summary.TopWords {
			fmt.Fprintf(w, "  %s (%d)\n", tc.Term, tc.Count)
		}
		if len(summary.Suggestions) > 0 {
			fmt.Fprintln(w, "Suggested hashtags:")
			for _, s := range summary.Suggestions {
				fmt.Fprintf(w, "  %s\n", s)
			}
		}
	}
	return nil
}
