package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"envelope-service/pkg/common"
	"envelope-service/pkg/config"
	"envelope-service/pkg/envelope"
	"envelope-service/pkg/idempotency"
	"envelope-service/pkg/logger"
	"envelope-service/pkg/storage"
	"envelope-service/pkg/worker"
)

type NoteRepository interface {
	Create(ctx context.Context, input storage.NoteInput) (*storage.Note, error)
	Get(ctx context.Context, id string) (*storage.Note, error)
	List(ctx context.Context, opts storage.ListOptions) ([]storage.Note, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, input storage.NoteInput) (*storage.Note, error)
	Delete(ctx context.Context, id string) error
}

type PurgeQueue interface {
	Submit(olderThan time.Time) (worker.Job, error)
	Job(id string) (worker.Job, bool)
}

type NotesHandler struct {
	Store        NoteRepository
	Guard        idempotency.Guard
	Purges       PurgeQueue
	MaxBodyBytes int64
	env          envelope.Builder
}

func NewNotesHandler(cfg *config.Config, store NoteRepository, guard idempotency.Guard, purges PurgeQueue) *NotesHandler {
	if guard == nil {
		guard = idempotency.NopGuard{}
	}
	return &NotesHandler{
		Store:        store,
		Guard:        guard,
		Purges:       purges,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		env:          envelope.Builder{FlattenPayload: cfg.Envelope.FlattenPayload},
	}
}

// RegisterRoutes mounts the note and job routes. Writes need a writer key
// and a JSON body.
func (h *NotesHandler) RegisterRoutes(r chi.Router) {
	writer := RequireWriter(h.env)
	jsonBody := RequireJSON(h.env)

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.With(writer, jsonBody).Post("/notes", h.CreateNote)
	r.With(writer, jsonBody).Post("/notes/purge", h.PurgeNotes)
	r.With(writer, jsonBody).Put("/notes/{id}", h.UpdateNote)
	r.With(writer).Delete("/notes/{id}", h.DeleteNote)
	r.With(writer).Patch("/notes/{id}", h.PatchNote)
	r.Get("/jobs/{id}", h.GetJob)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validateNote(in *storage.NoteInput) []interface{} {
	in.Slug = strings.TrimSpace(in.Slug)
	in.Title = strings.TrimSpace(in.Title)

	var errs []string
	switch {
	case in.Slug == "":
		errs = append(errs, "slug is required")
	case len(in.Slug) > 191:
		errs = append(errs, "slug must be at most 191 characters")
	case !slugPattern.MatchString(in.Slug):
		errs = append(errs, "slug must be lowercase letters, digits and single dashes")
	}
	switch {
	case in.Title == "":
		errs = append(errs, "title is required")
	case len(in.Title) > 255:
		errs = append(errs, "title must be at most 255 characters")
	}

	if len(errs) == 0 {
		return nil
	}
	return envelope.Messages(errs...)
}

func (h *NotesHandler) badBody(w http.ResponseWriter, err error) {
	respond(w, h.env.BadRequest(envelope.Messages(err.Error()), envelope.BadRequest.DefaultMessage()))
}

func (h *NotesHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.Error(msg+" (correlationId="+common.GetCorrelationID(r.Context())+")", err)
	respond(w, h.env.InternalServerError(nil, envelope.InternalServerError.DefaultMessage()))
}

func (h *NotesHandler) noteNotFound(w http.ResponseWriter, id string) {
	respond(w, h.env.NotFound(envelope.Messages("note "+id+" does not exist"), envelope.NotFound.DefaultMessage()))
}

// ListNotes godoc
// @Summary List notes
// @Tags notes
// @Produce json
// @Param limit query int false "Page size (1-100)" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /notes [get]
func (h *NotesHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	var errs []string

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > 100 {
			errs = append(errs, "limit must be an integer between 1 and 100")
		} else {
			limit = v
		}
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			errs = append(errs, "offset must be a non-negative integer")
		} else {
			offset = v
		}
	}

	if len(errs) > 0 {
		respond(w, h.env.BadRequest(envelope.Messages(errs...), "Invalid pagination parameters"))
		return
	}

	notes, err := h.Store.List(r.Context(), storage.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		h.internalError(w, r, "failed to list notes", err)
		return
	}

	count, err := h.Store.Count(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to count notes", err)
		return
	}

	respond(w, h.env.Success(map[string]interface{}{
		"notes": notes,
		"pagination": map[string]interface{}{
			"limit":  limit,
			"offset": offset,
			"total":  count,
		},
	}, ""))
}

// GetNote godoc
// @Summary Get a note
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /notes/{id} [get]
func (h *NotesHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	note, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.noteNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, r, "failed to get note", err)
		return
	}

	respond(w, h.env.Success(map[string]interface{}{"note": note}, ""))
}

// CreateNote godoc
// @Summary Create a note
// @Description Slugs are unique. Repeating an Idempotency-Key answers 409.
// @Tags notes
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-generated request key"
// @Param request body storage.NoteInput true "Note"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Router /notes [post]
func (h *NotesHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var input storage.NoteInput
	if err := readJSON(w, r, h.MaxBodyBytes, &input); err != nil {
		h.badBody(w, err)
		return
	}
	if errs := validateNote(&input); errs != nil {
		respond(w, h.env.BadRequest(errs, "Validation failed"))
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		err := h.Guard.Claim(r.Context(), key)
		if errors.Is(err, idempotency.ErrInFlight) {
			respond(w, h.env.Conflict(envelope.Messages("Idempotency-Key "+key+" was already used"), envelope.Conflict.DefaultMessage()))
			return
		}
		if err != nil {
			h.internalError(w, r, "failed to claim idempotency key", err)
			return
		}
	}

	note, err := h.Store.Create(r.Context(), input)
	if err != nil {
		if key != "" {
			if rerr := h.Guard.Release(context.WithoutCancel(r.Context()), key); rerr != nil {
				logger.Error("failed to release idempotency key", rerr)
			}
		}
		if errors.Is(err, storage.ErrConflict) {
			respond(w, h.env.Conflict(envelope.Messages("slug "+input.Slug+" is already taken"), envelope.Conflict.DefaultMessage()))
			return
		}
		h.internalError(w, r, "failed to create note", err)
		return
	}

	w.Header().Set("Location", "/notes/"+note.ID)
	respond(w, h.env.Created(map[string]interface{}{"note": note}, "Note created"))
}

// UpdateNote godoc
// @Summary Replace a note
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param request body storage.NoteInput true "Note"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Router /notes/{id} [put]
func (h *NotesHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input storage.NoteInput
	if err := readJSON(w, r, h.MaxBodyBytes, &input); err != nil {
		h.badBody(w, err)
		return
	}
	if errs := validateNote(&input); errs != nil {
		respond(w, h.env.BadRequest(errs, "Validation failed"))
		return
	}

	note, err := h.Store.Update(r.Context(), id, input)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.noteNotFound(w, id)
	case errors.Is(err, storage.ErrConflict):
		respond(w, h.env.Conflict(envelope.Messages("slug "+input.Slug+" is already taken"), envelope.Conflict.DefaultMessage()))
	case err != nil:
		h.internalError(w, r, "failed to update note", err)
	default:
		respond(w, h.env.Success(map[string]interface{}{"note": note}, "Note updated"))
	}
}

// DeleteNote godoc
// @Summary Delete a note
// @Tags notes
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /notes/{id} [delete]
func (h *NotesHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.Store.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.noteNotFound(w, id)
		return
	}
	if err != nil {
		h.internalError(w, r, "failed to delete note", err)
		return
	}

	respond(w, h.env.NoContent("Note deleted"))
}

// PatchNote godoc
// @Summary Partial update (not supported)
// @Tags notes
// @Param id path string true "Note ID"
// @Failure 501 {object} map[string]interface{}
// @Router /notes/{id} [patch]
func (h *NotesHandler) PatchNote(w http.ResponseWriter, r *http.Request) {
	respond(w, h.env.NotImplemented(
		envelope.Messages("partial updates are not supported, use PUT"),
		envelope.NotImplemented.DefaultMessage(),
	))
}

type purgeRequest struct {
	OlderThan string `json:"olderThan"`
}

// PurgeNotes godoc
// @Summary Purge old notes
// @Description Queues deletion of notes created before olderThan (RFC 3339)
// @Tags notes
// @Accept json
// @Produce json
// @Param request body purgeRequest true "Cutoff"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /notes/purge [post]
func (h *NotesHandler) PurgeNotes(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := readJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		h.badBody(w, err)
		return
	}

	cutoff, err := time.Parse(time.RFC3339, req.OlderThan)
	if err != nil {
		respond(w, h.env.BadRequest(
			envelope.Messages("olderThan must be an RFC 3339 timestamp, e.g. 2026-01-04T10:00:00Z"),
			"Validation failed",
		))
		return
	}

	job, err := h.Purges.Submit(cutoff)
	if err != nil {
		h.internalError(w, r, "failed to queue purge", err)
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID)
	respond(w, h.env.Accepted(map[string]interface{}{"job": job}, "Purge queued"))
}

// GetJob godoc
// @Summary Get a purge job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /jobs/{id} [get]
func (h *NotesHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok := h.Purges.Job(id)
	if !ok {
		respond(w, h.env.NotFound(envelope.Messages("job "+id+" does not exist"), envelope.NotFound.DefaultMessage()))
		return
	}

	respond(w, h.env.Success(map[string]interface{}{"job": job}, ""))
}
