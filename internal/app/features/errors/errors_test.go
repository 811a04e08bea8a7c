package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", fmt.Errorf("%w: demand x", demandsvc.ErrNotFound), http.StatusNotFound, KindNotFound},
		{"invalid transition", demandsvc.ErrInvalidTransition, http.StatusConflict, KindInvalidTransition},
		{"already converted", demandsvc.ErrAlreadyConverted, http.StatusConflict, KindAlreadyConverted},
		{"conflict", demandsvc.ErrConflict, http.StatusConflict, KindConflict},
		{"invalid state", demandsvc.ErrInvalidState, http.StatusUnprocessableEntity, KindInvalidState},
		{"configuration", demandsvc.ErrConfiguration, http.StatusServiceUnavailable, KindConfiguration},
		{"validation", demandsvc.ErrValidation, http.StatusBadRequest, KindValidation},
		{"infrastructure", &demandsvc.InfrastructureError{Op: "list", Err: stderrors.New("index missing")}, http.StatusInternalServerError, KindInfrastructure},
		{"other", stderrors.New("contract service down"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := Classify(tt.err)
			if status != tt.wantStatus || kind != tt.wantKind {
				t.Errorf("Classify() = %d %q, want %d %q", status, kind, tt.wantStatus, tt.wantKind)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	el := NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/demands/emergency/d-1", nil)
	el.Write(rec, req, fmt.Errorf("%w: demand d-1", demandsvc.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != KindNotFound || body.Message != "not found: demand d-1" {
		t.Errorf("body = %+v", body)
	}
	if logs.Len() != 0 {
		t.Error("4xx responses should not be logged as errors")
	}

	rec = httptest.NewRecorder()
	el.Write(rec, req, &demandsvc.InfrastructureError{Op: "get demand", Err: stderrors.New("socket closed")})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if logs.FilterMessage("request failed").Len() != 1 {
		t.Error("expected 5xx to be logged")
	}
}
