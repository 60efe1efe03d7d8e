package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSONError writes a JSON error body with the given status
func writeJSONError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// runSummary is the list representation of a run, without its line items
type runSummary struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Pages       int    `json:"pages"`
	FailedPages []int  `json:"failed_pages,omitempty"`
	ItemCount   int    `json:"item_count"`
	CreatedAt   string `json:"created_at"`
}

// handleExtract accepts a multipart invoice upload, runs the extraction
// pipeline, and responds in the requested format (json, csv, or xlsx)
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxFormSize := int64(50 << 20) // 50MB
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSONError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}

	pages := 0
	if v := r.FormValue("pages"); v != "" {
		pages, err = strconv.Atoi(v)
		if err != nil || pages < 0 {
			writeJSONError(w, "pages must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}

	format := r.FormValue("format")
	if format == "" {
		format = "json"
	}

	doc, cleanup, err := s.open(data, contentType)
	if err != nil {
		slog.Error("Error opening uploaded document", "error", err, "filename", header.Filename)
		writeJSONError(w, "Could not open document", http.StatusBadRequest)
		return
	}
	defer cleanup()
	defer doc.Close()

	result, err := s.pipeline.Extract(r.Context(), doc, pages)
	if err != nil {
		slog.Error("Extraction aborted", "error", err, "filename", header.Filename)
		writeJSONError(w, "Extraction aborted", http.StatusInternalServerError)
		return
	}

	items := Normalize(result.Items)

	run := NewRun(s.idGenerator.Generate(), header.Filename, result, items, s.timeSource.Now())
	if s.db != nil {
		if err := s.db.SaveRun(run); err != nil {
			// Run history is best effort; the extraction itself succeeded
			slog.Warn("Failed to save run", "run", run.ID, "error", err)
		}
	}

	if len(items) == 0 {
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"run_id":       run.ID,
			"message":      "no line items extracted",
			"failed_pages": run.FailedPages,
		})
		return
	}

	setCORSHeaders(w)
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		if err := WriteJSON(w, items); err != nil {
			slog.Error("Error writing JSON response", "error", err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="line_items.csv"`)
		if err := WriteCSV(w, items); err != nil {
			slog.Error("Error writing CSV response", "error", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="line_items.xlsx"`)
		if err := WriteXLSX(w, items); err != nil {
			slog.Error("Error writing workbook response", "error", err)
		}
	default:
		writeJSONError(w, "format must be json, csv, or xlsx", http.StatusBadRequest)
	}
}

// handleListRuns returns summaries of all stored extraction runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		writeJSONError(w, "Run history is not configured", http.StatusNotFound)
		return
	}

	runs, err := s.db.ListRuns()
	if err != nil {
		slog.Error("Error listing runs", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary{
			ID:          run.ID,
			Source:      run.Source,
			Pages:       run.Pages,
			FailedPages: run.FailedPages,
			ItemCount:   len(run.Items),
			CreatedAt:   run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleRun serves a single run as JSON, or its line items as CSV when the
// path ends in /csv
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		corsError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		writeJSONError(w, "Run history is not configured", http.StatusNotFound)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	wantCSV := strings.HasSuffix(id, "/csv")
	id = strings.TrimSuffix(id, "/csv")
	if id == "" {
		corsError(w, "Run ID required", http.StatusBadRequest)
		return
	}

	run, err := s.db.GetRun(id)
	if err != nil {
		writeJSONError(w, "Run not found", http.StatusNotFound)
		return
	}

	if wantCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.csv"`)
		if err := WriteCSV(w, run.Items); err != nil {
			if errors.Is(err, ErrNoLineItems) {
				writeJSONError(w, "Run has no line items", http.StatusNotFound)
				return
			}
			slog.Error("Error writing CSV response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// contentTypeFromExt guesses a content type from the file extension
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic", ".heif":
		return "image/heic"
	default:
		return "application/pdf"
	}
}
