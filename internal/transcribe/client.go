package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/rbright/murmur/internal/audio"
)

const maxResponseBytes = 1 << 20

// Client posts artifacts as multipart/form-data: model, language, then the
// WAV file part.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client whose dial and whole-exchange limits both equal cfg.Timeout.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = discardLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
		TLSHandshakeTimeout: cfg.Timeout,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("http2 transport unavailable; using http/1.1", "error", err.Error())
		}
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Transcribe uploads artifact with credential as the bearer token.
func (c *Client) Transcribe(ctx context.Context, artifact audio.Artifact, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", &Error{Kind: KindInvalidCredential}
	}

	payload, err := os.ReadFile(artifact.Path)
	if err != nil {
		return "", &Error{Kind: KindFileRead, Err: err}
	}

	body, contentType, err := encodeForm(c.cfg.Model, c.cfg.Language, artifact.Name, payload)
	if err != nil {
		return "", &Error{Kind: KindFileRead, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", classifyTransport(err)
	}

	c.logger.Debug("transcription response",
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
		"bytes", len(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serverError(resp.StatusCode, errorMessage(raw))
	}
	return decodeText(raw)
}

// encodeForm writes the upload form: model, language, then the audio/wav file part.
func encodeForm(model, language, fileName string, payload []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := form.WriteField("language", language); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "audio/wav")
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &body, form.FormDataContentType(), nil
}

// errorMessage extracts {"error":{"message":...}} when present.
func errorMessage(raw []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return ""
	}
	return envelope.Error.Message
}

// decodeText accepts {"text":...}; the text is returned verbatim, even when empty.
func decodeText(raw []byte) (string, error) {
	var decoded struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &Error{Kind: KindDecoding, Err: err}
	}
	if decoded.Text == nil {
		return "", &Error{Kind: KindDecoding, Err: fmt.Errorf("response has no text field")}
	}
	return *decoded.Text, nil
}
