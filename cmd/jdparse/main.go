// Command jdparse validates JD documents as one batch and prints their text.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jd-analyzer/backend/internal/logging"
	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/parser"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type fileOutput struct {
	File     string `json:"file"`
	Format   string `json:"format,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Pages    int    `json:"pages,omitempty"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

type batchOutput struct {
	Verdict models.ValidationVerdict `json:"verdict"`
	Files   []fileOutput             `json:"files,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jdparse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	maxFile := fs.String("max-file-size", "10MiB", "per-file size limit")
	maxBatch := fs.String("max-batch-size", "100MiB", "cumulative batch size limit")
	maxFiles := fs.Int("max-batch-files", upload.DefaultMaxBatchCount, "maximum number of files")
	formats := fs.String("formats", strings.Join(parser.DefaultFormats(), ","), "comma-separated supported extensions")
	strict := fs.Bool("strict", false, "fail undecodable text instead of replacing invalid bytes")
	asJSON := fs.Bool("json", false, "print results as JSON")
	logLevel := fs.String("log-level", "warn", "log level")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: jdparse [flags] file...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logging.New(stderr, *logLevel, "text")

	limits, err := parseLimits(*maxFile, *maxBatch, *maxFiles)
	if err != nil {
		fmt.Fprintf(stderr, "jdparse: %v\n", err)
		return 2
	}
	registry, err := parser.NewRegistryFor(strings.Split(*formats, ","), parser.WithLossyTextFallback(!*strict))
	if err != nil {
		fmt.Fprintf(stderr, "jdparse: %v\n", err)
		return 2
	}
	validator := upload.NewValidator(limits, registry)

	candidates := make([]models.UploadCandidate, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "jdparse: %v\n", err)
			return 1
		}
		candidates = append(candidates, models.UploadCandidate{
			Name: filepath.Base(path),
			Size: int64(len(data)),
			Data: data,
		})
	}

	out := batchOutput{Verdict: validator.ValidateBatch(candidates)}
	failed := !out.Verdict.Valid

	if out.Verdict.Valid {
		for _, c := range candidates {
			result := fileOutput{File: c.Name}
			doc, err := registry.Parse(c.Data, c.Name)
			if err != nil {
				failed = true
				result.Error = err.Error()
				logger.Warn("extraction failed", "file", c.Name, "error", err)
			} else {
				result.Format = doc.Format
				result.Encoding = doc.Encoding
				result.Pages = doc.Pages
				result.Text = doc.Text
			}
			out.Files = append(out.Files, result)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "jdparse: %v\n", err)
			return 1
		}
	} else {
		printText(stdout, out)
	}

	if failed {
		return 1
	}
	return 0
}

func parseLimits(maxFile, maxBatch string, maxFiles int) (upload.Limits, error) {
	fileBytes, err := humanize.ParseBytes(maxFile)
	if err != nil {
		return upload.Limits{}, fmt.Errorf("max-file-size: %w", err)
	}
	batchBytes, err := humanize.ParseBytes(maxBatch)
	if err != nil {
		return upload.Limits{}, fmt.Errorf("max-batch-size: %w", err)
	}
	limits := upload.Limits{
		MaxFileBytes:  int64(fileBytes),
		MaxBatchCount: maxFiles,
		MaxBatchBytes: int64(batchBytes),
	}
	return limits, limits.Validate()
}

func printText(w io.Writer, out batchOutput) {
	status := "OK"
	if !out.Verdict.Valid {
		status = "REJECTED"
	}
	fmt.Fprintf(w, "%s: %s\n", status, out.Verdict.Message)

	for _, f := range out.Files {
		fmt.Fprintf(w, "\n==> %s <==\n", f.File)
		if f.Error != "" {
			fmt.Fprintf(w, "error: %s\n", f.Error)
			continue
		}
		meta := f.Format
		if f.Encoding != "" {
			meta += ", " + f.Encoding
		}
		if f.Pages > 0 {
			meta += fmt.Sprintf(", %d pages", f.Pages)
		}
		fmt.Fprintf(w, "[%s]\n%s\n", meta, f.Text)
	}
}
