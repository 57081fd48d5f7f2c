// 包 media 负责本地上传图片的内联编码（data URI）。
// 远程图片只以 URL 引用，不经过这里。
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"go-landing-studio/internal/logx"
)

// MaxFileSize 为单个上传文件的读取上限。
const MaxFileSize = 10 << 20

var ErrNotDataURI = errors.New("not a base64 data uri")

// IsDataURI 判断是否为 data: 前缀的内联数据。
func IsDataURI(s string) bool { return strings.HasPrefix(s, "data:") }

// EncodeDataURI 以 base64 形式编码为 data URI；mime 为空时按内容探测。
func EncodeDataURI(data []byte, mime string) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI 解析 base64 data URI，返回字节与 MIME（缺失时为 image/jpeg）。
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", ErrNotDataURI
	}
	head, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok || !strings.HasSuffix(head, ";base64") {
		return nil, "", ErrNotDataURI
	}
	mime := strings.TrimSuffix(head, ";base64")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return data, mime, nil
}

// Source 为一个待编码的上传文件。
type Source struct {
	Name string
	MIME string
	Open func() (io.ReadCloser, error)
}

// EncodeFiles 每个文件一个 goroutine 并发读取，结果按完成顺序合并；
// 读取失败的文件跳过并记录日志。
func EncodeFiles(ctx context.Context, files []Source) []string {
	var (
		mu  sync.Mutex
		out = make([]string, 0, len(files))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			uri, err := encodeOne(gctx, f)
			if err != nil {
				logx.Warnf("读取上传文件失败 %s: %v", f.Name, err)
				return nil
			}
			mu.Lock()
			out = append(out, uri)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func encodeOne(ctx context.Context, f Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Open == nil {
		return "", errors.New("no reader")
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("file larger than %d bytes", MaxFileSize)
	}
	return EncodeDataURI(data, f.MIME), nil
}
