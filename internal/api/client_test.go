package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	err := New("http://127.0.0.1:1", "").Healthcheck(context.Background())
	assert.ErrorContains(t, err, "healthcheck request failed")
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer mysecret", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"filename", "scenario", "session", "duration", "tag"} {
			received[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "evening_run.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("test content"), 0o644))

	err := New(server.URL, "mysecret").Upload(context.Background(), path, core.UploadMetadata{
		ScenarioName:    "loop",
		SessionName:     "evening run",
		SessionDuration: 3600.5,
		Tag:             "ci",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"filename": "evening_run.json.gz",
		"scenario": "loop",
		"session":  "evening run",
		"duration": "3600.500",
		"tag":      "ci",
	}, received)
	assert.Equal(t, "test content", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "unknown key", http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	err := New(server.URL, "wrong-secret").Upload(context.Background(), path, core.UploadMetadata{})
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "status 403: unknown key")
}

func TestUpload_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	err := New(server.URL, "key").Upload(context.Background(), path, core.UploadMetadata{})
	assert.ErrorContains(t, err, "upload returned status 503")
	assert.NotErrorIs(t, err, ErrRejected)
}
