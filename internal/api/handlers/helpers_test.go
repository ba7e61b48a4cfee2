package handlers

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("x: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{"degenerate", fmt.Errorf("x: %w", domain.ErrNumericalDegeneracy), http.StatusUnprocessableEntity},
		{"empty", fmt.Errorf("x: %w", domain.ErrEmptyResult), http.StatusNotFound},
		{"client canceled", fmt.Errorf("x: %w", context.Canceled), statusClientClosedRequest},
		{"request deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{
			"engine budget",
			fmt.Errorf("x: %w: %w", domain.ErrNumericalDegeneracy, context.DeadlineExceeded),
			http.StatusUnprocessableEntity,
		},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: statusFor = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestWriteServiceErrorLogLevels(t *testing.T) {
	prev := obs.L()
	t.Cleanup(func() { obs.SetLogger(prev) })

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantLevel zapcore.Level
		wantLogs  int
	}{
		{"canceled", context.Canceled, statusClientClosedRequest, zapcore.InfoLevel, 1},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, zapcore.InfoLevel, 1},
		{"internal", errors.New("boom"), http.StatusInternalServerError, zapcore.ErrorLevel, 1},
		{"invalid", domain.ErrInvalidArgument, http.StatusBadRequest, zapcore.InfoLevel, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			obs.SetLogger(zap.New(core))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/circles", nil)
			writeServiceError(rec, req, "circles", tt.err)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			entries := logs.All()
			if len(entries) != tt.wantLogs {
				t.Fatalf("logged %d entries, want %d", len(entries), tt.wantLogs)
			}
			if tt.wantLogs > 0 && entries[0].Level != tt.wantLevel {
				t.Fatalf("logged at %v, want %v", entries[0].Level, tt.wantLevel)
			}
		})
	}
}
