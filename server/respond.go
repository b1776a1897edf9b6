package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/logger"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

// writeError maps typed errors to their status and code. Untyped errors are
// reported as internal, with the cause exposed only in development.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if meta.ShowMessage && typed.Message() != "" {
		msg = typed.Message()
	}
	payload := errorEnvelope{Error: apiError{Code: string(typed.Code()), Message: msg}}
	if typed.Code() == apperr.CodeInternal {
		if s.opts.Development {
			payload.Error.Message = err.Error()
		}
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		payload.Error.Details = typed.Details()
		s.log.Debug("request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", string(typed.Code())),
			zap.Error(err))
	}
	writeJSON(w, meta.HTTPStatus, payload)
}
