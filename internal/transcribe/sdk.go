package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rbright/murmur/internal/audio"
)

// SDKClient sends the same exchange through the go-openai SDK, for
// OpenAI-compatible services that reject hand-built forms.
type SDKClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewSDKClient builds an SDKClient bounded by cfg.Timeout.
func NewSDKClient(cfg Config, logger *slog.Logger) *SDKClient {
	if logger == nil {
		logger = discardLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &SDKClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: formTransport{next: http.DefaultTransport}},
		logger: logger,
	}
}

// Transcribe uploads artifact and maps SDK failures onto Error kinds.
func (c *SDKClient) Transcribe(ctx context.Context, artifact audio.Artifact, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", &Error{Kind: KindInvalidCredential}
	}

	file, err := os.Open(artifact.Path)
	if err != nil {
		return "", &Error{Kind: KindFileRead, Err: err}
	}
	defer file.Close()

	conf := openai.DefaultConfig(credential)
	conf.BaseURL = BaseURL(c.cfg.Endpoint)
	conf.HTTPClient = c.http

	resp, err := openai.NewClientWithConfig(conf).CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: artifact.Name,
		Reader:   file,
		Language: c.cfg.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", classifySDK(err)
	}
	return resp.Text, nil
}

// formTransport puts the SDK's upload on the same wire as Client: the form
// is re-encoded as model, language, file with an audio/wav file part, and a
// 2xx reply must carry a text field.
type formTransport struct {
	next http.RoundTripper
}

func (t formTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := reencodeForm(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if _, err := decodeText(raw); err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	resp.ContentLength = int64(len(raw))
	return resp, nil
}

// reencodeForm returns a copy of req whose multipart body follows encodeForm.
// Requests that are not multipart pass through untouched.
func reencodeForm(req *http.Request) (*http.Request, error) {
	if req.Body == nil || !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		return req, nil
	}
	defer req.Body.Close()

	reader, err := req.MultipartReader()
	if err != nil {
		return nil, &Error{Kind: KindFileRead, Err: err}
	}

	var (
		fields   = map[string]string{}
		fileName string
		payload  []byte
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Kind: KindFileRead, Err: err}
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, &Error{Kind: KindFileRead, Err: err}
		}
		if part.FormName() == "file" {
			fileName, payload = part.FileName(), data
			continue
		}
		fields[part.FormName()] = string(data)
	}
	if payload == nil {
		return nil, &Error{Kind: KindFileRead, Err: fmt.Errorf("upload form has no file part")}
	}

	body, contentType, err := encodeForm(fields["model"], fields["language"], fileName, payload)
	if err != nil {
		return nil, &Error{Kind: KindFileRead, Err: err}
	}
	encoded := body.Bytes()

	out := req.Clone(req.Context())
	out.Header.Set("Content-Type", contentType)
	out.ContentLength = int64(len(encoded))
	out.Body = io.NopCloser(bytes.NewReader(encoded))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(encoded)), nil
	}
	return out, nil
}

func classifySDK(err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return serverError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return serverError(reqErr.HTTPStatusCode, "")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindDecoding, Err: err}
	}
	return classifyTransport(err)
}
