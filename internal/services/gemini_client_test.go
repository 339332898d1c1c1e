package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStripMarkdownFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
		{"```json\n[1,2]\n```  ", "[1,2]"},
	}
	for _, tc := range cases {
		if got := StripMarkdownFences(tc.in); got != tc.want {
			t.Fatalf("StripMarkdownFences(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestParseExtractionText_Envelope(t *testing.T) {
	text := `{"courses":[{"code":"CS 101","name":"Intro to CS","term":"Fall 2026"}]}`
	courses, err := ParseExtractionText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Code != "CS 101" || courses[0].Term != "Fall 2026" {
		t.Fatalf("unexpected courses: %+v", courses)
	}
}

func TestParseExtractionText_BareArray(t *testing.T) {
	text := "```json\n[{\"code\":\"MATH 200\",\"name\":\"Linear Algebra\"}]\n```"
	courses, err := ParseExtractionText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Name != "Linear Algebra" {
		t.Fatalf("unexpected courses: %+v", courses)
	}
}

func TestParseExtractionText_GarbagePreservesRawText(t *testing.T) {
	raw := "Sorry, I could not read the attachment."
	_, err := ParseExtractionText(raw)
	if err == nil {
		t.Fatalf("expected error")
	}
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %T", err)
	}
	if exErr.RawText != raw {
		t.Fatalf("expected raw text preserved, got %q", exErr.RawText)
	}
}

func newTestGeminiClient(t *testing.T, baseURL string) *geminiClient {
	t.Helper()
	return &geminiClient{
		log:        testLogger(t).With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     "test-key",
		model:      "gemini-2.0-flash",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 0,
	}
}

func TestExtractCourses_ParsesCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var req generateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Errorf("expected instruction part plus one file part, got %+v", req.Contents)
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "```json\n{\"courses\":[{\"code\":\"PHYS 121\",\"name\":\"Mechanics\"}]}\n```"},
				}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL)
	courses, err := client.ExtractCourses(context.Background(), []FilePart{
		{MimeType: "application/pdf", Data: []byte("%PDF-fake")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 1 || courses[0].Code != "PHYS 121" {
		t.Fatalf("unexpected courses: %+v", courses)
	}
}

func TestExtractCourses_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL)
	_, err := client.ExtractCourses(context.Background(), []FilePart{{MimeType: "text/plain", Data: []byte("x")}})
	if err == nil {
		t.Fatalf("expected error")
	}
	var httpErr *geminiHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected http 400 error, got %v", err)
	}
}

func TestExtractCourses_NoFilesRejected(t *testing.T) {
	client := newTestGeminiClient(t, "http://unused")
	if _, err := client.ExtractCourses(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty file list")
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	for _, code := range []int{408, 429, 500, 503, 599} {
		if !isRetryableHTTP(code) {
			t.Fatalf("expected %d retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404} {
		if isRetryableHTTP(code) {
			t.Fatalf("expected %d not retryable", code)
		}
	}
}

func TestIsRetryableErr_CancelledNotRetryable(t *testing.T) {
	if isRetryableErr(context.Canceled) {
		t.Fatalf("cancelled context classified retryable")
	}
	if !isRetryableErr(&geminiHTTPError{StatusCode: 503}) {
		t.Fatalf("503 should stay retryable")
	}
}

func TestExtractCourses_CancelledContextSkipsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL)
	client.maxRetries = 3

	start := time.Now()
	_, err := client.ExtractCourses(ctx, []FilePart{{MimeType: "application/pdf", Data: []byte("x")}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("want=1 request got=%d", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("cancelled call still slept a backoff: %s", elapsed)
	}
}
