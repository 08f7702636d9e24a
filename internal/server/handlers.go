package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/pipeline"
	"github.com/jonathan/jobtriage/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxRequestBytes caps JSON request bodies; pasted JDs are the largest.
const maxRequestBytes = 1 << 20

// ManualSubmitRequest is the body of POST /approval/api/manual-submit.
// Exactly one of JobDescription or URL is needed.
type ManualSubmitRequest struct {
	JobDescription string `json:"jobDescription" validate:"required_without=URL"`
	URL            string `json:"url" validate:"omitempty,url"`
	Source         string `json:"source" validate:"omitempty,oneof=manual chat email"`
}

// ApproveRequest carries reviewer edits. Every field is optional.
type ApproveRequest struct {
	To      string `json:"to" validate:"omitempty,email"`
	CC      string `json:"cc"`
	Subject string `json:"subject" validate:"max=300"`
	Body    string `json:"body"`
}

// RequestChangesRequest is the body of POST /approval/api/request-changes/{id}.
type RequestChangesRequest struct {
	Comments string `json:"comments" validate:"required"`
}

// SubmitResponse reports the outcome of a manual submission.
type SubmitResponse struct {
	Success    bool              `json:"success"`
	Queued     bool              `json:"queued"`
	Skipped    bool              `json:"skipped,omitempty"`
	Submission *types.Submission `json:"submission,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ListResponse is the body of GET /approval/api/pending.
type ListResponse struct {
	Submissions []types.Submission   `json:"submissions"`
	Count       int                  `json:"count"`
	Stats       map[types.Status]int `json:"stats"`
}

// decodeJSON reads an optional JSON body into dst and validates it.
// An empty body leaves dst zero-valued.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return &ErrValidation{Message: "failed to read request body"}
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return &ErrValidation{Message: "invalid request body: " + err.Error()}
		}
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: "failed on " + fe.Tag()}
	}
	return &ErrValidation{Message: err.Error()}
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	status := types.Status(r.URL.Query().Get("status"))
	switch status {
	case "", types.StatusPending, types.StatusApproved, types.StatusRejected, types.StatusChangesRequested:
	default:
		s.errorFrom(w, r, &ErrValidation{Field: "status", Message: "unknown status " + string(status)})
		return
	}

	all, err := s.queue.List(r.Context(), "")
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	stats := make(map[types.Status]int)
	subs := make([]types.Submission, 0, len(all))
	for _, sub := range all {
		stats[sub.Status]++
		if status == "" || sub.Status == status {
			subs = append(subs, sub)
		}
	}
	s.jsonResponse(w, http.StatusOK, ListResponse{Submissions: subs, Count: len(subs), Stats: stats})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sub)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.approve(w, r, approval.Edits(req))
}

// handleSendNow approves and sends with the stored email unchanged.
func (s *Server) handleSendNow(w http.ResponseWriter, r *http.Request) {
	s.approve(w, r, approval.Edits{})
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request, edits approval.Edits) {
	sub, err := s.queue.Approve(r.Context(), r.PathValue("id"), edits)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Application sent to " + sub.EmailTo,
		"submission": sub,
	})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	sub, err := s.queue.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "submission": sub})
}

func (s *Server) handleRequestChanges(w http.ResponseWriter, r *http.Request) {
	var req RequestChangesRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	sub, err := s.queue.RequestChanges(r.Context(), r.PathValue("id"), req.Comments)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "submission": sub})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.queue.DeleteAll(r.Context())
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.logger.Info("queue cleared", slog.Int("deleted", n))
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (s *Server) handleRegenerateEmail(w http.ResponseWriter, r *http.Request) {
	sub, err := s.pipeline.RegenerateEmail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":      true,
		"emailSubject": sub.EmailSubject,
		"emailBody":    sub.EmailBody,
	})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	sub, err := s.pipeline.Regenerate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "submission": sub})
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	sub, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if sub.PDFPath == "" {
		s.errorResponse(w, http.StatusNotFound, "PDF not available")
		return
	}
	if _, err := os.Stat(sub.PDFPath); err != nil {
		s.logger.Warn("PDF missing on disk",
			slog.String("id", sub.ID),
			slog.String("path", sub.PDFPath),
		)
		s.errorResponse(w, http.StatusNotFound, "PDF not available")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+filepath.Base(sub.PDFPath)+`"`)
	http.ServeFile(w, r, sub.PDFPath)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	subs, err := s.queue.List(r.Context(), types.Status(r.URL.Query().Get("status")))
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := approval.ExportXLSX(subs, &buf); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	name := "approval-queue-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// resolveJD returns the JD text of a manual submission, fetching the
// posting when only a URL was given.
func (s *Server) resolveJD(r *http.Request, req ManualSubmitRequest) (string, error) {
	if text := strings.TrimSpace(req.JobDescription); text != "" {
		return text, nil
	}
	if strings.TrimSpace(req.URL) == "" {
		return "", &ErrValidation{Field: "jobDescription", Message: "job description is empty"}
	}
	if s.fetcher == nil {
		return "", &ErrValidation{Field: "url", Message: "fetching by URL is disabled"}
	}
	result, err := s.fetcher.JobText(r.Context(), req.URL)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", &ErrValidation{Field: "url", Message: "no job description found at URL"}
	}
	return result.Text, nil
}

func (s *Server) handleManualSubmit(w http.ResponseWriter, r *http.Request) {
	var req ManualSubmitRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}
	text, err := s.resolveJD(r, req)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	outcome, err := s.pipeline.Submit(r.Context(), text, types.NormalizeProvenance(req.Source))
	resp := submitResponse(outcome)
	if err != nil {
		if len(resp.Errors) == 0 {
			resp.Errors = []string{err.Error()}
		}
		s.logger.Warn("manual submission not queued", slog.Any("error", err))
		s.jsonResponse(w, HTTPStatus(err), resp)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleManualSubmitStream runs a manual submission and reports each
// pipeline step as a server-sent event.
func (s *Server) handleManualSubmitStream(w http.ResponseWriter, r *http.Request) {
	var req ManualSubmitRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	fail := func(msg string) {
		if err := stream.Fail(msg); err != nil {
			s.logger.Warn("error writing SSE event", slog.Any("error", err))
		}
	}

	text, err := s.resolveJD(r, req)
	if err != nil {
		fail(err.Error())
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(event pipeline.ProgressEvent) {
		if err := stream.Send("step", event); err != nil {
			s.logger.Warn("error writing SSE event", slog.Any("error", err))
		}
	})

	outcome, err := s.pipeline.Submit(ctx, text, types.NormalizeProvenance(req.Source))
	if err != nil {
		s.logger.Warn("streamed submission not queued", slog.Any("error", err))
		fail(err.Error())
		return
	}
	resp := submitResponse(outcome)
	id, status := "", "skipped"
	if resp.Submission != nil {
		id, status = resp.Submission.ID, string(resp.Submission.Status)
	}
	if err := stream.Done(id, status); err != nil {
		s.logger.Warn("error writing SSE event", slog.Any("error", err))
	}
}

func submitResponse(outcome *pipeline.Outcome) SubmitResponse {
	if outcome == nil {
		return SubmitResponse{}
	}
	return SubmitResponse{
		Success:    outcome.Queued,
		Queued:     outcome.Queued,
		Skipped:    outcome.Skipped,
		Submission: outcome.Submission,
		Errors:     outcome.Errors,
		Warnings:   outcome.Validation.Warnings,
	}
}

// jsonTagName makes validator report JSON field names.
func jsonTagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
