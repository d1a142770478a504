// Package api 内嵌的 OpenAPI 文档
package api

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi/content-platform.yaml
var openAPISpec []byte

// Spec 返回原始 YAML 文档
func Spec() []byte {
	return openAPISpec
}

// Load 解析并校验内嵌的 OpenAPI 文档
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}
