package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"detectai/internal/aidetect"
	"detectai/internal/config"
	"detectai/internal/ingest"
	"detectai/internal/pipeline"
)

type batchLine struct {
	File    string           `json:"file"`
	Status  string           `json:"status"`
	Warning string           `json:"warning,omitempty"`
	Error   string           `json:"error,omitempty"`
	Result  *aidetect.Result `json:"result,omitempty"`
}

// runAnalyze scores every file named in args and writes one JSON line per
// file to out, in argument order. "-" reads stdin.
func runAnalyze(cfg *config.Config, args []string, stdin io.Reader, out io.Writer, logger aidetect.Logger) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	workers := fs.Int("workers", 0, "concurrent analyses (0 = one per CPU)")
	seed := fs.Uint64("seed", cfg.Scorer.Seed, "perturbation seed (0 = random)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("no input files (use - for stdin)")
	}

	lines := make([]batchLine, len(files))
	docs := make([]pipeline.Document, 0, len(files))
	stdinUsed := false
	for i, name := range files {
		lines[i].File = name
		if name == "-" {
			if stdinUsed {
				lines[i].Status = "error"
				lines[i].Error = "stdin already consumed"
				continue
			}
			stdinUsed = true
			raw, err := io.ReadAll(stdin)
			if err != nil {
				lines[i].Status = "error"
				lines[i].Error = err.Error()
				continue
			}
			docs = append(docs, pipeline.Document{Index: i, Name: name, Text: string(raw)})
			continue
		}
		parsed, err := ingest.ParseFile(name)
		if err != nil {
			lines[i].Status = "error"
			lines[i].Error = err.Error()
			continue
		}
		docs = append(docs, pipeline.Document{Index: i, Name: name, Text: parsed.Text})
	}

	src := aidetect.NewLockedSource(aidetect.NewSeededSource(*seed))
	scorer := aidetect.NewScorer(cfg.Detector(), src, logger)
	errs := pipeline.Run(docs, *workers, func(doc pipeline.Document) error {
		switch res := scorer.Analyze(doc.Text).(type) {
		case aidetect.Empty:
			lines[doc.Index].Status = "empty"
			lines[doc.Index].Warning = "no text found"
		case aidetect.Result:
			lines[doc.Index].Status = "ok"
			lines[doc.Index].Result = &res
		default:
			return fmt.Errorf("%s: unexpected outcome %T", doc.Name, res)
		}
		return nil
	})

	enc := json.NewEncoder(out)
	failed := 0
	for _, l := range lines {
		if l.Status == "error" {
			failed++
		}
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(files))
	}
	return nil
}
