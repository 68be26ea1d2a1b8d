package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type echoReq struct {
	Market string `json:"market" validate:"required"`
	Count  int    `json:"count" default:"10" validate:"gte=1,lte=100"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var req echoReq
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("market %s not tracked", c.QueryParam("code")))
	})
	e.GET("/boom", func(echo.Context) error { panic("boom") })
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var resp APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestServerValidationAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(testHandler{}, nil, WithMetrics(reg, reg))

	rec, resp := do(t, s, http.MethodPost, "/echo", `{"market":"KRW-BTC"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	data, _ := resp.Data.(map[string]any)
	if data["count"] != float64(10) {
		t.Fatalf("default not applied: %v", resp.Data)
	}

	rec, resp = do(t, s, http.MethodPost, "/echo", `{"count":500}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	errs, _ := resp.Data.([]any)
	if len(errs) != 2 {
		t.Fatalf("expected two validation errors, got %v", resp.Data)
	}
	first, _ := errs[0].(map[string]any)
	if first["field"] != "market" || first["code"] != "ERR_REQUIRED" {
		t.Fatalf("first error %v", first)
	}

	rec, _ = do(t, s, http.MethodGet, "/missing?code=KRW-XRP", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "KRW-XRP not tracked") {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}

	rec, _ = do(t, s, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic should map to 500, got %d", rec.Code)
	}

	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "flowtrader_http_requests_total") {
		t.Fatalf("metrics endpoint missing request counter: %d", rec.Code)
	}
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	var dest map[string]any
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &dest)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || !se.Retryable() || se.Body != "slow down" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientSendsJSON(t *testing.T) {
	var got map[string]any
	var ct string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]any{"username": "ctb"},
	}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ct != "application/json" || got["username"] != "ctb" {
		t.Fatalf("content type %q body %v", ct, got)
	}
}
