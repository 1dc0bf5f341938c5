package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/store"
	"github.com/ykvlv/assetwatch/internal/transfer"
)

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.store.ListResources(r.Context())
	if err != nil {
		s.log.Error("list resources failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list resources", "")
		return
	}
	writeJSON(w, r, http.StatusOK, resources)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, ok := s.loadResource(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var res domain.Resource
	if err := decodeJSON(r, &res, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	res.ID = uuid.NewString()
	res.CreatedAt, res.UpdatedAt = time.Time{}, time.Time{}
	// lastNotified is owned by the sweep.
	if res.Notification != nil {
		res.Notification.LastNotified = ""
	}
	if err := res.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err := s.store.CreateResource(r.Context(), &res); err != nil {
		s.log.Error("create resource failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to create resource", "")
		return
	}
	s.notifyChange(r.Context(), domain.ActionCreated, res, nil)
	writeJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	old, ok := s.loadResource(w, r)
	if !ok {
		return
	}
	var res domain.Resource
	if err := decodeJSON(r, &res, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	res.ID = old.ID
	res.CreatedAt = old.CreatedAt
	keepMarker(&res, old)
	if err := res.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err := s.store.UpdateResource(r.Context(), &res); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found", "")
			return
		}
		s.log.Error("update resource failed", zap.String("id", res.ID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to update resource", "")
		return
	}
	if changes := domain.Diff(*old, res); len(changes) > 0 {
		s.notifyChange(r.Context(), domain.ActionUpdated, res, changes)
	}
	writeJSON(w, r, http.StatusOK, res)
}

// keepMarker carries the stored lastNotified over a client update so that an
// edit cannot re-arm a reminder already sent today.
func keepMarker(updated *domain.Resource, old *domain.Resource) {
	marker := old.LastNotified()
	if updated.Notification == nil {
		if marker == "" {
			return
		}
		updated.Notification = &domain.NotificationSettings{Enabled: true, UseGlobal: true}
	}
	updated.Notification.LastNotified = marker
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	old, ok := s.loadResource(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteResource(r.Context(), old.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found", "")
			return
		}
		s.log.Error("delete resource failed", zap.String("id", old.ID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to delete resource", "")
		return
	}
	s.notifyChange(r.Context(), domain.ActionDeleted, *old, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadResource(w http.ResponseWriter, r *http.Request) (*domain.Resource, bool) {
	id := chi.URLParam(r, "id")
	res, err := s.store.GetResource(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "resource not found", "")
		return nil, false
	}
	if err != nil {
		s.log.Error("get resource failed", zap.String("id", id), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load resource", "")
		return nil, false
	}
	return res, true
}

// notifyChange announces a CRUD event. Its outcome is only logged; the CRUD
// call has already succeeded.
func (s *Server) notifyChange(ctx context.Context, action domain.ChangeAction, res domain.Resource, changes []domain.Change) {
	ctx = context.WithoutCancel(ctx)
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		s.log.Warn("change notification skipped, settings unavailable", zap.String("id", res.ID), zap.Error(err))
		return
	}
	sum := s.notifier.NotifyChange(ctx, action, res, settings, changes)
	s.log.Info("change notification",
		zap.String("action", string(action)),
		zap.String("id", res.ID),
		zap.Bool("skipped", sum.Skipped),
		zap.Strings("sent", sum.SentNames()),
		zap.Int("failed", len(sum.Failed())),
	)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	env, err := transfer.Export(r.Context(), s.store, s.opts.Now())
	if err != nil {
		s.log.Error("export failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to export resources", "")
		return
	}
	contentType := "application/json"
	if format == transfer.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="resources-%s.%s"`, s.today(), format))
	if err := transfer.Encode(w, env, format); err != nil {
		s.log.Error("export encode failed", zap.Error(err))
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	env, err := transfer.Decode(io.LimitReader(r.Body, maxBodyBytes), format)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	rep, err := transfer.Import(r.Context(), s.store, env.Resources)
	if err != nil {
		s.log.Error("import aborted", zap.Int("imported", rep.Imported), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "import aborted", "")
		return
	}
	s.log.Info("import done", zap.Int("imported", rep.Imported), zap.Int("failed", rep.Failed))
	writeJSON(w, r, http.StatusOK, rep)
}
