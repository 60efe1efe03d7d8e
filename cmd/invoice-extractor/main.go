package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"invoice-extractor/internal/extraction"
	"invoice-extractor/internal/invoice"
	"invoice-extractor/internal/render"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Pick up GEMINI_API_KEY and friends from a local .env if present
	_ = godotenv.Load()

	fs := ff.NewFlagSet("invoice-extractor")
	var (
		pdfPath       = fs.StringLong("pdf", "", "Path to the invoice PDF to extract")
		pages         = fs.IntLong("pages", 0, "Maximum number of pages to process (0 = all)")
		jsonOut       = fs.StringLong("json-out", "invoice_line_items.json", "JSON output path (empty to skip)")
		csvOut        = fs.StringLong("csv-out", "", "CSV output path (empty to skip)")
		xlsxOut       = fs.StringLong("xlsx-out", "", "XLSX workbook output path (empty to skip)")
		dbPath        = fs.StringLong("db", "", "Run-history database file path (empty to disable)")
		serve         = fs.BoolLong("serve", "Run as an HTTP server instead of a one-shot extraction")
		port          = fs.IntLong("port", 8080, "HTTP server port")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username for server mode (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password for server mode (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize extractor based on type
	var extractor invoice.Extractor
	var err error
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize run history if configured
	var db invoice.DB
	if *dbPath != "" {
		db, err = invoice.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	if *serve {
		runServer(extractor, db, *port, *authUser, *authPass)
		return
	}

	if *pdfPath == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --pdf is required unless --serve is set")
		os.Exit(1)
	}

	if err := runExtraction(extractor, db, *pdfPath, *pages, *jsonOut, *csvOut, *xlsxOut); err != nil {
		slog.Error("Extraction failed", "error", err)
		os.Exit(1)
	}
}

// runExtraction performs a one-shot extraction of a local PDF and writes
// the requested exports
func runExtraction(extractor invoice.Extractor, db invoice.DB, pdfPath string, pages int, jsonOut, csvOut, xlsxOut string) error {
	files := render.NewTempFiles()
	defer files.Cleanup()

	doc, err := render.Open(pdfPath, files)
	if err != nil {
		return err
	}
	defer doc.Close()

	pipeline := invoice.NewPipelineWithProgress(extractor, newProgressReporter())
	result, err := pipeline.Extract(context.Background(), doc, pages)
	if err != nil {
		return err
	}

	for _, page := range result.FailedPages() {
		slog.Warn("Page skipped", "page", page.Page+1, "error", page.Err)
	}

	items := invoice.Normalize(result.Items)
	slog.Info("Extraction complete", "pages", len(result.Pages), "line_items", len(items))

	if db != nil {
		run := invoice.NewRun(fmt.Sprintf("%d", time.Now().UnixNano()), pdfPath, result, items, time.Now())
		if err := db.SaveRun(run); err != nil {
			slog.Warn("Failed to save run", "error", err)
		}
	}

	if err := writeExport(jsonOut, items, invoice.WriteJSON); err != nil {
		return err
	}
	if err := writeExport(csvOut, items, invoice.WriteCSV); err != nil {
		return err
	}
	if err := writeExport(xlsxOut, items, invoice.WriteXLSX); err != nil {
		return err
	}

	return nil
}

// writeExport writes one export file, treating an empty record set as an
// informational no-op
func writeExport(path string, items []invoice.LineItem, write func(w io.Writer, items []invoice.LineItem) error) error {
	if path == "" {
		return nil
	}
	if len(items) == 0 {
		slog.Info("No line items extracted, skipping export", "path", path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f, items); err != nil {
		if errors.Is(err, invoice.ErrNoLineItems) {
			return nil
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Info("Wrote export", "path", path)
	return nil
}

// runServer starts the HTTP upload server
func runServer(extractor invoice.Extractor, db invoice.DB, port int, authUser, authPass string) {
	pipeline := invoice.NewPipeline(extractor)

	open := func(data []byte, contentType string) (invoice.Document, func(), error) {
		files := render.NewTempFiles()
		doc, err := render.OpenUpload(data, contentType, files)
		if err != nil {
			files.Cleanup()
			return nil, nil, err
		}
		return doc, files.Cleanup, nil
	}

	server := invoice.NewServer(pipeline, db, open, invoice.BasicAuth{
		Username: authUser,
		Password: authPass,
	})

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Server starting", "address", fmt.Sprintf("http://localhost%s", addr))
	if authUser != "" || authPass != "" {
		slog.Info("Basic auth enabled", "user", authUser)
	}
	if err := server.Start(addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
