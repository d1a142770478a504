// Package objstore 对象存储抽象，用于保存资源附件文档
package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// Object 下载结果，调用方负责关闭 Body
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store 对象存储接口
type Store interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
