package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
)

const (
	downloadTimeout    = 30 * time.Second
	downloadRetryCount = 2
)

// getReportAsFile 获取报告文件。
// - 如果输入不包含 "://", 则视为本地文件路径（相对或绝对）。
// - 如果是 file:// URI，直接使用其路径。
// - 如果是 http:// 或 https:// URI，下载到临时文件并返回其路径。
// 返回最终的文件路径、一个用于清理临时文件的函数以及错误。
func getReportAsFile(ctx context.Context, logger log.Logger, uriStr string) (filePath string, cleanup func(), err error) {
	cleanup = func() {} // 默认清理函数为空操作

	if !strings.Contains(uriStr, "://") {
		absPath, err := filepath.Abs(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get absolute path for '%s': %w", uriStr, err)
		}
		level.Debug(logger).Log("msg", "using local report path", "input", uriStr, "path", absPath)
		return absPath, cleanup, nil
	}

	parsedURI, err := url.Parse(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid report URI '%s': %w", uriStr, err)
	}

	switch parsedURI.Scheme {
	case "file":
		filePath = parsedURI.Path
		if filePath == "" {
			return "", nil, fmt.Errorf("invalid file path derived from URI '%s'", uriStr)
		}
		level.Debug(logger).Log("msg", "using local report file", "path", filePath)
		return filePath, cleanup, nil

	case "http", "https":
		return downloadReport(ctx, logger, uriStr)

	default:
		return "", nil, fmt.Errorf("unsupported URI scheme '%s', only 'file://', 'http://', 'https://', or a plain local path are supported", parsedURI.Scheme)
	}
}

// downloadReport 将远程报告下载到临时文件。
func downloadReport(ctx context.Context, logger log.Logger, uriStr string) (string, func(), error) {
	tempFile, err := os.CreateTemp("", "hotspot-report-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file for download: %w", err)
	}
	filePath := tempFile.Name()
	// resty 会自己打开输出文件，这里只需要文件名
	_ = tempFile.Close()

	cleanup := func() {
		level.Debug(logger).Log("msg", "cleaning up temporary file", "path", filePath)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			level.Warn(logger).Log("msg", "failed to remove temporary file", "path", filePath, "err", err)
		}
	}

	level.Info(logger).Log("msg", "downloading report", "url", uriStr, "path", filePath)
	client := resty.New().
		SetTimeout(downloadTimeout).
		SetRetryCount(downloadRetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	resp, err := client.R().
		SetContext(ctx).
		SetOutput(filePath).
		Get(uriStr)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to download report from '%s': %w", uriStr, err)
	}
	if resp.StatusCode() != http.StatusOK {
		cleanup()
		return "", nil, fmt.Errorf("failed to download report from '%s': received status code %d", uriStr, resp.StatusCode())
	}

	level.Debug(logger).Log("msg", "downloaded report", "path", filePath, "bytes", resp.Size())
	return filePath, cleanup, nil
}
