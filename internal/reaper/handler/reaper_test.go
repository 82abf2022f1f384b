package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type stubSweeper struct {
	cancelled int
	err       error
	calls     int
}

func (s *stubSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls++
	return s.cancelled, s.err
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		sweeper    *stubSweeper
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{"open trigger", "", "", &stubSweeper{cancelled: 3}, http.StatusOK, `{"cancelled":3}`, 1},
		{"matching secret", "s3cret", "s3cret", &stubSweeper{cancelled: 0}, http.StatusOK, `{"cancelled":0}`, 1},
		{"wrong secret", "s3cret", "guess", &stubSweeper{}, http.StatusUnauthorized, "", 0},
		{"missing secret", "s3cret", "", &stubSweeper{}, http.StatusUnauthorized, "", 0},
		{"selection failure", "", "", &stubSweeper{err: errors.New("db down")}, http.StatusInternalServerError, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewReaperHandler(tt.sweeper, tt.secret, logger.Discard()).RegisterRoutes(router)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reaper/run", nil)
			if tt.header != "" {
				req.Header.Set(SecretHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody+"\n" {
				t.Errorf("expected body %s, got %s", tt.wantBody, rec.Body.String())
			}
			if tt.sweeper.calls != tt.wantCalls {
				t.Errorf("expected %d sweeps, got %d", tt.wantCalls, tt.sweeper.calls)
			}
		})
	}
}
