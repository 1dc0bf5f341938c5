package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ykvlv/assetwatch/internal/ai"
	"github.com/ykvlv/assetwatch/internal/domain"
)

type analyzeRequest struct {
	ai.Preference
	Resources []domain.Resource `json:"resources"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type chatRequest struct {
	ai.Preference
	Messages []ai.Message `json:"messages"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"providers": s.assistant.Providers()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	resources := req.Resources
	if len(resources) == 0 {
		var err error
		if resources, err = s.store.ListResources(r.Context()); err != nil {
			s.log.Error("list resources failed", zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "failed to list resources", "")
			return
		}
	}
	res, err := s.assistant.Analyze(r.Context(), resources, s.today(), req.Preference)
	if err != nil {
		s.writeAIError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, analyzeResponse{Analysis: res.Text, Provider: res.Provider, Model: res.Model})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if len(req.Messages) == 0 || strings.TrimSpace(req.Messages[len(req.Messages)-1].Content) == "" {
		writeError(w, r, http.StatusBadRequest, "messages must end with a non-empty message", "")
		return
	}
	resources, err := s.store.ListResources(r.Context())
	if err != nil {
		s.log.Error("list resources failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list resources", "")
		return
	}
	res, err := s.assistant.Chat(r.Context(), resources, s.today(), req.Messages, req.Preference)
	if err != nil {
		s.writeAIError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chatResponse{Reply: res.Text, Provider: res.Provider, Model: res.Model})
}

// writeAIError maps an AI error code to a status. Configuration problems are
// reported verbatim; upstream failures get a fixed message so provider
// responses never reach the client.
func (s *Server) writeAIError(w http.ResponseWriter, r *http.Request, err error) {
	code := ai.CodeOf(err)
	status, msg := aiStatus(code)
	if ai.IsConfigCode(code) {
		msg = err.Error()
		s.log.Warn("AI request rejected", zap.String("code", code), zap.Error(err))
	} else {
		s.log.Error("AI request failed", zap.String("code", code), zap.Error(err))
	}
	writeError(w, r, status, msg, code)
}

func aiStatus(code string) (int, string) {
	switch code {
	case ai.CodeCustomEndpointNotFound:
		return http.StatusNotFound, ""
	case ai.CodeTimeout:
		return http.StatusGatewayTimeout, "AI provider timed out"
	case ai.CodeRateLimit:
		return http.StatusTooManyRequests, "AI provider rate limit reached"
	case ai.CodeModelUnavailable, ai.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable, "AI provider unavailable"
	case ai.CodeModelNotFound:
		return http.StatusBadGateway, "AI model not found"
	case ai.CodeBackendError:
		return http.StatusInternalServerError, "AI request failed"
	}
	if ai.IsConfigCode(code) {
		return http.StatusBadRequest, ""
	}
	return http.StatusInternalServerError, "AI request failed"
}
