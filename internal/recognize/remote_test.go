package recognize

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemoteRequiresEndpoint(t *testing.T) {
	_, err := NewRemote(RemoteOptions{Endpoint: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRemoteRecognize(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Hello  "}`)
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteOptions{Endpoint: " " + srv.URL + "/api/recognize\n"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/recognize", r.Endpoint())
	text, err := r.Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "png-bytes", string(gotBody))
}

func TestRemoteErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"Analyze failed"}`, ErrUpstream},
		{"plain error body", http.StatusBadGateway, "bad gateway", ErrUpstream},
		{"malformed", http.StatusOK, `{"text":`, ErrResponseInvalid},
		{"error field", http.StatusOK, `{"error":"quota"}`, ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			r, err := NewRemote(RemoteOptions{Endpoint: srv.URL})
			require.NoError(t, err)
			_, err = r.Recognize(context.Background(), []byte("x"))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRemoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	r, err := NewRemote(RemoteOptions{Endpoint: url})
	require.NoError(t, err)
	_, err = r.Recognize(context.Background(), []byte("x"))
	assert.Error(t, err)
}
