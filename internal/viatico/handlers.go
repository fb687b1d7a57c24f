package viatico

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/artifact"
	"github.com/zombor/viatico-tracker/internal/expense"
	"github.com/zombor/viatico-tracker/internal/report"
	"github.com/zombor/viatico-tracker/internal/signature"
)

const (
	// maxUploadSize is large enough for high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	// maxJSONSize bounds record, gesture and filter bodies
	maxJSONSize = int64(4 << 20)

	queryDateLayout = "2006-01-02"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeJSON encodes v with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", zap.Error(err))
	}
}

// writeError maps service errors onto status codes; unexpected errors are logged and hidden
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrPhotoLimit):
		status = http.StatusConflict
	case errors.Is(err, signature.ErrEmptySignature):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, artifact.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, expense.ErrInvalidRecord):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "Internal server error"
	}
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// filterRequest is the wire form of a report filter; dates are YYYY-MM-DD in the report zone
type filterRequest struct {
	Technician string `json:"technician"`
	Client     string `json:"client"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// toFilter parses the request dates. "to" covers the whole of its day.
func (f filterRequest) toFilter(loc *time.Location) (report.Filter, error) {
	filter := report.Filter{
		Technician: strings.TrimSpace(f.Technician),
		Client:     strings.TrimSpace(f.Client),
	}
	if f.From != "" {
		from, err := time.ParseInLocation(queryDateLayout, f.From, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid from date %q", f.From)
		}
		filter.DateStart = &from
	}
	if f.To != "" {
		to, err := time.ParseInLocation(queryDateLayout, f.To, loc)
		if err != nil {
			return filter, fmt.Errorf("invalid to date %q", f.To)
		}
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.DateEnd = &to
	}
	if filter.DateStart != nil && filter.DateEnd != nil && filter.DateEnd.Before(*filter.DateStart) {
		return filter, fmt.Errorf("to date %q is before from date %q", f.To, f.From)
	}
	return filter, nil
}

// ParseFilter builds a report filter from YYYY-MM-DD dates interpreted in loc
func ParseFilter(technician, client, from, to string, loc *time.Location) (report.Filter, error) {
	return filterRequest{Technician: technician, Client: client, From: from, To: to}.toFilter(loc)
}

func (s *Server) queryFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	return filterRequest{
		Technician: q.Get("technician"),
		Client:     q.Get("client"),
		From:       q.Get("from"),
		To:         q.Get("to"),
	}.toFilter(s.service.Location())
}

// handleListRecords returns the records matching the query filter
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := s.queryFilter(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	records, err := s.service.ListRecords(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleGetRecord returns a single record
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetRecord(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleCreateRecord stores a new record from the JSON body
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var in expense.Record
	if err := decodeJSON(w, r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	record, err := s.service.CreateRecord(&in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

// handleUpdateRecord replaces a record's fields from the JSON body
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var in expense.Record
	if err := decodeJSON(w, r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	record, err := s.service.UpdateRecord(r.PathValue("id"), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleDeleteRecord deletes a record
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRecord(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadPhoto attaches an uploaded photo to a record
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.logger.Warn("Error parsing multipart form", zap.Error(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "File is too large. Maximum size is 50MB. Please compress or resize your image.",
			})
			return
		}
		s.badRequest(w, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		msg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			msg = "No file was selected. Please choose a file to upload."
		}
		s.badRequest(w, msg)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("Error reading file data", zap.String("filename", header.Filename), zap.Error(err))
		s.writeError(w, r, fmt.Errorf("reading upload: %w", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromName(header.Filename)
	}

	record, err := s.service.AddPhoto(r.PathValue("id"), data, strings.ToLower(strings.TrimSpace(contentType)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

// contentTypeFromName guesses the MIME type of common phone uploads from the file extension
func contentTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleAddPhotoLink attaches a remote photo URL to a record
func (s *Server) handleAddPhotoLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	record, err := s.service.AddPhotoLink(r.PathValue("id"), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

// handleDeletePhoto removes one photo by its zero-based index
func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.badRequest(w, "Photo index must be a number")
		return
	}
	record, err := s.service.DeletePhoto(r.PathValue("id"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleSign renders a captured gesture stream into the record's signature
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	var gesture signature.Gesture
	if err := decodeJSON(w, r, &gesture); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	record, err := s.service.Sign(r.PathValue("id"), gesture)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleClearSignature removes the record's signature
func (s *Server) handleClearSignature(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.ClearSignature(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// handleStats returns aggregate totals for the query filter
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filter, err := s.queryFilter(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	summary, err := s.service.Stats(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleExportReport generates a workbook for the JSON filter and returns it as a download
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	// an empty body exports everything
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, err.Error())
		return
	}
	filter, err := req.toFilter(s.service.Location())
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	rep, err := s.service.ExportReport(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeXLSX(w, rep.FileName, rep.Data)
}

// handleListReports returns the archive index
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListReports()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// handleGetReport downloads an archived report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.service.GetReport(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeXLSX(w, name, data)
}

func (s *Server) writeXLSX(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Error writing report", zap.String("file", name), zap.Error(err))
	}
}
