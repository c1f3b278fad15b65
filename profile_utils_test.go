package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReportAsFileLocal(t *testing.T) {
	ctx := context.Background()
	logger := log.NewNopLogger()

	t.Run("RelativePath", func(t *testing.T) {
		path, cleanup, err := getReportAsFile(ctx, logger, fixturePath)
		require.NoError(t, err)
		defer cleanup()

		want, err := filepath.Abs(fixturePath)
		require.NoError(t, err)
		assert.Equal(t, want, path)

		cleanup()
		assert.FileExists(t, path)
	})

	t.Run("FileURI", func(t *testing.T) {
		abs, err := filepath.Abs(fixturePath)
		require.NoError(t, err)

		path, cleanup, err := getReportAsFile(ctx, logger, "file://"+abs)
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, abs, path)
	})

	t.Run("EmptyFileURI", func(t *testing.T) {
		_, _, err := getReportAsFile(ctx, logger, "file://")
		assert.Error(t, err)
	})

	t.Run("UnsupportedScheme", func(t *testing.T) {
		_, _, err := getReportAsFile(ctx, logger, "s3://bucket/gprof.txt")
		assert.ErrorContains(t, err, "unsupported URI scheme")
	})
}

func TestGetReportAsFileHTTP(t *testing.T) {
	body, err := os.ReadFile(fixturePath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/gprof.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	ctx := context.Background()
	logger := log.NewNopLogger()

	t.Run("Download", func(t *testing.T) {
		path, cleanup, err := getReportAsFile(ctx, logger, srv.URL+"/reports/gprof.txt")
		require.NoError(t, err)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, body, got)

		cleanup()
		assert.NoFileExists(t, path)
	})

	t.Run("NotFound", func(t *testing.T) {
		path, cleanup, err := getReportAsFile(ctx, logger, srv.URL+"/reports/missing.txt")
		assert.ErrorContains(t, err, "received status code 404")
		assert.Empty(t, path)
		assert.Nil(t, cleanup)
	})

	t.Run("AnalyzeOverHTTP", func(t *testing.T) {
		code, out, _ := run(t, srv.URL+"/reports/gprof.txt")
		require.Equal(t, 0, code)
		assert.Contains(t, out, "6 of 7 functions")
	})
}
