package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/domain"
	"github.com/ykvlv/assetwatch/internal/notify"
)

// handleCheck runs one sweep. The sweep is detached from the request so a
// disconnecting client cannot leave it half done.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	rep, err := s.sweeper.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		s.log.Error("manual sweep failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "sweep failed", "")
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

type testRequest struct {
	Channel string `json:"channel"`
}

type testResult struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	var ch notify.Channel
	if req.Channel != "" {
		parsed, ok := notify.ParseChannel(req.Channel)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown channel "+req.Channel, "")
			return
		}
		ch = parsed
	}
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.log.Error("load settings failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load settings", "")
		return
	}
	sum := s.notifier.SendTest(r.Context(), ch, settings)
	out := make([]testResult, 0, len(sum.Results))
	for _, res := range sum.Results {
		tr := testResult{Channel: string(res.Channel), OK: res.Err == nil}
		if res.Err != nil {
			tr.Error = res.Err.Error()
		}
		out = append(out, tr)
	}
	writeJSON(w, r, http.StatusOK, out)
}

type settingsResponse struct {
	domain.Settings
	Credentials Credentials `json:"credentials"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.log.Error("load settings failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load settings", "")
		return
	}
	writeJSON(w, r, http.StatusOK, settingsResponse{Settings: settings, Credentials: s.opts.Credentials})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(r, &settings, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err := settings.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if settings.Webhook.URL != "" {
		if err := notify.ValidateWebhookURL(settings.Webhook.URL); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), "")
			return
		}
	}
	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		s.log.Error("save settings failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to save settings", "")
		return
	}
	s.log.Info("settings saved",
		zap.Int("reminder_days", settings.ReminderDays),
		zap.Bool("telegram", settings.Telegram.Enabled),
		zap.Bool("email", settings.Email.Enabled),
		zap.Bool("webhook", settings.Webhook.Enabled),
	)
	writeJSON(w, r, http.StatusOK, settingsResponse{Settings: settings, Credentials: s.opts.Credentials})
}
