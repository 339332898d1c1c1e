package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "regexp"
  "strconv"
  "strings"
  "time"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/types"
)

const extractionInstruction = `You are given one or more course documents (timetables, syllabi, course outlines) as attachments.
Extract every course you can find and respond with a single JSON object of the form:
{"courses": [{"code": "...", "name": "...", "term": "...", "description": "...",
"sections": [{"section_id": "...", "instructor": {"name": "...", "email": "...", "office": {"location": "...", "office_hours": [{"day": "...", "start_time": "...", "end_time": "...", "location": "..."}]}},
"schedule": [{"day": "...", "start_time": "...", "end_time": "...", "location": "...", "class_type": "...", "is_rescheduled": false}]}],
"assessments": [{"title": "...", "type": "...", "due_date": "...", "description": "...", "weight": 0, "status": "...", "location": "..."}]}]}
Use ISO-8601 with offsets for date-times. Omit fields you cannot determine. Respond with JSON only, no commentary.`

// ExtractionError wraps a failure to interpret the model's reply. RawText
// carries the unparsed reply so it can be preserved for manual inspection.
type ExtractionError struct {
  RawText string
  Err     error
}

func (e *ExtractionError) Error() string {
  return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
  return e.Err
}

// FilePart is one document going into a single extraction request.
type FilePart struct {
  MimeType string
  Data     []byte
}

type GeminiClient interface {
  ExtractCourses(ctx context.Context, files []FilePart) ([]types.ExtractedCourse, error)
}

type geminiClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client

  maxRetries int
}

func NewGeminiClient(log *logger.Logger) (GeminiClient, error) {
  apiKey := os.Getenv("GEMINI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing GEMINI_API_KEY")
  }

  baseURL := os.Getenv("GEMINI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com"
  }

  model := os.Getenv("GEMINI_MODEL")
  if model == "" {
    model = "gemini-2.0-flash"
  }

  timeoutSec := 120
  if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 3
  if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &geminiClient{
    log:        log.With("service", "GeminiClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type geminiHTTPError struct {
  StatusCode int
  Body       string
}

func (e *geminiHTTPError) Error() string {
  return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  if code >= 500 && code <= 599 {
    return true
  }
  return false
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  // A cancelled call means the caller gave up; never retry it.
  if errors.Is(err, context.Canceled) {
    return false
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *geminiHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

type geminiPart struct {
  Text       string            `json:"text,omitempty"`
  InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
  MimeType string `json:"mime_type"`
  Data     string `json:"data"`
}

type geminiContent struct {
  Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
  Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
  Candidates []struct {
    Content struct {
      Parts []struct {
        Text string `json:"text"`
      } `json:"parts"`
    } `json:"content"`
    FinishReason string `json:"finishReason,omitempty"`
  } `json:"candidates"`
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Content-Type", "application/json")
  req.Header.Set("x-goog-api-key", c.apiKey)

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }

    // The caller's context may have expired during the attempt; sleeping a
    // backoff now only delays the exit.
    if ctx.Err() != nil {
      return err
    }

    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Gemini request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

var fenceRe = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// StripMarkdownFences removes a single surrounding ```json ... ``` fence if
// present; any other text comes back unchanged.
func StripMarkdownFences(text string) string {
  if m := fenceRe.FindStringSubmatch(text); m != nil {
    return m[1]
  }
  return strings.TrimSpace(text)
}

type extractionPayload struct {
  Courses []types.ExtractedCourse `json:"courses"`
}

// ParseExtractionText turns the model's reply text into extracted courses.
// Accepts either the documented {"courses": [...]} envelope or a bare array.
func ParseExtractionText(text string) ([]types.ExtractedCourse, error) {
  cleaned := StripMarkdownFences(text)
  if cleaned == "" {
    return nil, &ExtractionError{RawText: text, Err: fmt.Errorf("empty response")}
  }

  var payload extractionPayload
  if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && payload.Courses != nil {
    return payload.Courses, nil
  }

  var courses []types.ExtractedCourse
  if err := json.Unmarshal([]byte(cleaned), &courses); err != nil {
    return nil, &ExtractionError{RawText: text, Err: fmt.Errorf("response is not course JSON: %w", err)}
  }
  return courses, nil
}

func (c *geminiClient) ExtractCourses(ctx context.Context, files []FilePart) ([]types.ExtractedCourse, error) {
  if len(files) == 0 {
    return nil, fmt.Errorf("no files to extract from")
  }

  parts := make([]geminiPart, 0, len(files)+1)
  parts = append(parts, geminiPart{Text: extractionInstruction})
  for _, f := range files {
    mime := f.MimeType
    if mime == "" {
      mime = "application/octet-stream"
    }
    parts = append(parts, geminiPart{
      InlineData: &geminiInlineData{
        MimeType: mime,
        Data:     base64.StdEncoding.EncodeToString(f.Data),
      },
    })
  }

  req := generateContentRequest{
    Contents: []geminiContent{{Parts: parts}},
  }

  path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
  var resp generateContentResponse
  if err := c.do(ctx, path, req, &resp); err != nil {
    return nil, err
  }

  if len(resp.Candidates) == 0 {
    return nil, &ExtractionError{Err: fmt.Errorf("no candidates in response")}
  }

  var sb strings.Builder
  for _, p := range resp.Candidates[0].Content.Parts {
    sb.WriteString(p.Text)
  }

  return ParseExtractionText(sb.String())
}
