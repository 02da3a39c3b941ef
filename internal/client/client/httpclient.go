package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/common"
	"github.com/google/uuid"
)

// HTTPClient implements Client against the REST API.
type HTTPClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	schemas    *payloadSchemas
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL (e.g. http://127.0.0.1:3000/api).
// A nil httpClient uses a client with the transport's default timeouts.
func NewHTTPClient(baseURL string, tokens TokenSource, httpClient *http.Client) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &HTTPClient{baseURL: baseURL, tokens: tokens, httpClient: httpClient, schemas: schemas}, nil
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type historyResponse struct {
	envelope
	Data []models.RemoteDiagnosis `json:"data"`
}

type predictResponse struct {
	envelope
	Data *struct {
		Diagnosis *models.RemoteDiagnosis `json:"diagnosis"`
	} `json:"data"`
	Diagnosis *models.RemoteDiagnosis `json:"diagnosis"`
}

func (c *HTTPClient) History(ctx context.Context) ([]models.RemoteDiagnosis, error) {
	const op = "history"
	status, payload, err := c.do(ctx, op, http.MethodGet, "/diagnosis/history", nil, "")
	if err != nil {
		return nil, err
	}
	if err := validatePayload(c.schemas.history, payload); err != nil {
		return nil, &common.DecodeError{Op: op, Err: err}
	}
	var out historyResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &common.DecodeError{Op: op, Err: err}
	}
	if out.failed() {
		return nil, &common.RemoteError{Op: op, StatusCode: status, Message: out.text()}
	}
	if out.Data == nil {
		out.Data = []models.RemoteDiagnosis{}
	}
	return out.Data, nil
}

func (c *HTTPClient) Predict(ctx context.Context, in PredictInput) (*models.RemoteDiagnosis, error) {
	const op = "predict"
	if in.Image == nil {
		return nil, fmt.Errorf("%w: image is required", common.ErrInvalidRequest)
	}
	body, contentType, err := buildPredictBody(in)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	status, payload, err := c.do(ctx, op, http.MethodPost, "/diagnosis/predict", body, contentType)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(c.schemas.predict, payload); err != nil {
		return nil, &common.DecodeError{Op: op, Err: err}
	}
	var out predictResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &common.DecodeError{Op: op, Err: err}
	}
	if out.failed() {
		return nil, &common.RemoteError{Op: op, StatusCode: status, Message: out.text()}
	}
	d := out.Diagnosis
	if out.Data != nil && out.Data.Diagnosis != nil {
		d = out.Data.Diagnosis
	}
	if d == nil {
		return nil, &common.DecodeError{Op: op, Err: fmt.Errorf("response carries no diagnosis")}
	}
	return d, nil
}

func (c *HTTPClient) Delete(ctx context.Context, remoteID string) error {
	const op = "delete"
	if strings.TrimSpace(remoteID) == "" {
		return fmt.Errorf("%w: remote id is required", common.ErrInvalidRequest)
	}
	status, payload, err := c.do(ctx, op, http.MethodDelete, "/diagnosis/"+url.PathEscape(remoteID), nil, "")
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	var out envelope
	if err := json.Unmarshal(payload, &out); err != nil {
		// A 2xx with a non-JSON body still means the server accepted the delete.
		return nil
	}
	if out.failed() {
		return &common.RemoteError{Op: op, StatusCode: status, Message: out.text()}
	}
	return nil
}

// do sends one request and returns the status and body of a 2xx response.
// Anything else becomes a *common.RemoteError.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.CorrelationHeaderName, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, &common.RemoteError{Op: op, Err: ctx.Err()}
		}
		return 0, nil, &common.RemoteError{Op: op, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &common.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp.StatusCode, payload, nil
	}
	return resp.StatusCode, nil, &common.RemoteError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(payload),
		Err:        mapStatus(resp.StatusCode),
	}
}

func mapStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return nil
	}
}

// errorMessage extracts the server's explanation: the "error" field first,
// then "message", then the raw body when it is plain text.
func errorMessage(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err == nil {
		if s, ok := fields["error"].(string); ok && s != "" {
			return s
		}
		if s, ok := fields["message"].(string); ok && s != "" {
			return s
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func buildPredictBody(in PredictInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName := in.FileName
	if fileName == "" {
		fileName = uuid.NewString() + ".jpg"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = imageContentType(fileName)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(fileName)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, in.Image); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"cropType", in.CropType},
		{"symptoms", in.Symptoms},
		{"location", in.Location},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func imageContentType(fileName string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
