package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxynode/installer/interfaces"
)

func testFetcher(maxElapsed time.Duration) *Fetcher {
	return &Fetcher{
		client:         &http.Client{Timeout: 5 * time.Second},
		maxElapsedTime: maxElapsed,
		log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFetchWritesExecutable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#!/bin/sh\nexit 0\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "proxy")
	err := testFetcher(10*time.Second).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// The partial file must not survive a successful download.
	_, err = os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(err))
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("binary"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "proxy")
	err := testFetcher(30*time.Second).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestFetchExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "proxy")
	err := testFetcher(500*time.Millisecond).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrDownload)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "proxy")
	err := testFetcher(time.Minute).Fetch(ctx, srv.URL, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrDownload)
}
