package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/murmur/internal/audio"
)

func TestClientTranscribeSendsMultipartForm(t *testing.T) {
	artifact := writeTestArtifact(t, []byte("RIFF-fake-wav"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))

		reader, err := r.MultipartReader()
		require.NoError(t, err)

		type part struct{ name, fileName, contentType, body string }
		var parts []part
		for {
			p, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			body, err := io.ReadAll(p)
			require.NoError(t, err)
			parts = append(parts, part{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(body)})
		}

		require.Len(t, parts, 3)
		require.Equal(t, part{name: "model", body: DefaultModel}, parts[0])
		require.Equal(t, part{name: "language", body: "en"}, parts[1])
		require.Equal(t, part{name: "file", fileName: artifact.Name, contentType: "audio/wav", body: "RIFF-fake-wav"}, parts[2])

		_, _ = w.Write([]byte(`{"text":"hello world"}`))
	}))
	t.Cleanup(server.Close)

	text, err := newTestClient(server.URL, 0).Transcribe(context.Background(), artifact, " secret-key ")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestClientTranscribePreconditionsSkipNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{"text":"unexpected"}`))
	}))
	t.Cleanup(server.Close)
	client := newTestClient(server.URL, 0)

	tests := []struct {
		name       string
		artifact   audio.Artifact
		credential string
		wantKind   Kind
		wantMsg    string
	}{
		{
			name:       "empty credential",
			artifact:   writeTestArtifact(t, []byte("wav")),
			credential: "",
			wantKind:   KindInvalidCredential,
			wantMsg:    "Invalid API key. Please check your settings.",
		},
		{
			name:       "blank credential",
			artifact:   writeTestArtifact(t, []byte("wav")),
			credential: "   ",
			wantKind:   KindInvalidCredential,
			wantMsg:    "Invalid API key. Please check your settings.",
		},
		{
			name:       "unreadable artifact",
			artifact:   audio.Artifact{Path: filepath.Join(t.TempDir(), "gone.wav"), Name: "gone.wav"},
			credential: "key",
			wantKind:   KindFileRead,
			wantMsg:    "Failed to read audio file",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Transcribe(context.Background(), tc.artifact, tc.credential)
			require.Error(t, err)
			require.Equal(t, tc.wantKind, KindOf(err))
			require.Equal(t, tc.wantMsg, err.Error())
		})
	}
	require.Zero(t, requests.Load())
}

func TestClientTranscribeResponseHandling(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantText string
		wantKind Kind
		wantMsg  string
	}{
		{name: "server error with message", status: 500, body: `{"error":{"message":"overloaded"}}`, wantKind: KindServer, wantMsg: "Server error (500): overloaded"},
		{name: "server error without json", status: 401, body: `unauthorized`, wantKind: KindServer, wantMsg: "Server error (401): Unknown error"},
		{name: "server error with other json", status: 429, body: `{"detail":"slow down"}`, wantKind: KindServer, wantMsg: "Server error (429): Unknown error"},
		{name: "success with garbage", status: 200, body: `<html>`, wantKind: KindDecoding, wantMsg: "Failed to decode response"},
		{name: "success without text", status: 200, body: `{"result":"hi"}`, wantKind: KindDecoding, wantMsg: "Failed to decode response"},
		{name: "success with empty text", status: 200, body: `{"text":""}`, wantText: ""},
		{name: "success keeps whitespace", status: 201, body: `{"text":"  spaced  "}`, wantText: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			text, err := newTestClient(server.URL, 0).Transcribe(context.Background(), writeTestArtifact(t, []byte("wav")), "key")
			if tc.wantKind != "" {
				require.Error(t, err)
				require.Equal(t, tc.wantKind, KindOf(err))
				require.Equal(t, tc.wantMsg, err.Error())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantText, text)
		})
	}
}

func TestClientTranscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server.URL, 50*time.Millisecond).Transcribe(context.Background(), writeTestArtifact(t, []byte("wav")), "key")
	require.Error(t, err)
	require.Equal(t, KindTimeout, KindOf(err))
	require.Equal(t, "Request timed out. Please try again.", err.Error())
}

func TestClientTranscribeNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	_, err := newTestClient(endpoint, 0).Transcribe(context.Background(), writeTestArtifact(t, []byte("wav")), "key")
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
	require.True(t, strings.HasPrefix(err.Error(), "Network error: "))
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := DefaultConfig()

	transcriber, err := New(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &Client{}, transcriber)

	cfg.Provider = "OpenAI"
	transcriber, err = New(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &SDKClient{}, transcriber)

	cfg.Provider = "riva"
	_, err = New(cfg, nil)
	require.ErrorContains(t, err, "unknown transcription provider")
}

func TestBaseURL(t *testing.T) {
	require.Equal(t, "https://api.groq.com/openai/v1", BaseURL(DefaultEndpoint))
	require.Equal(t, "http://127.0.0.1:8080/v1", BaseURL("http://127.0.0.1:8080/v1/audio/transcriptions/"))
	require.Equal(t, "http://127.0.0.1:8080/v1", BaseURL("http://127.0.0.1:8080/v1"))
}

func newTestClient(endpoint string, timeout time.Duration) *Client {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return NewClient(cfg, nil)
}

func writeTestArtifact(t *testing.T, payload []byte) audio.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "murmur-test.wav")
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	return audio.Artifact{Path: path, Name: filepath.Base(path), SizeBytes: int64(len(payload))}
}
