// Package validate 基于 JSON Schema 的请求体校验
//
// 所有 schema 嵌入在 schemas/ 目录中，进程启动时编译。
// 校验失败返回失败原因列表，由调用方放入响应信封的 error 字段。
package validate

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// MaxBodyBytes 请求体大小上限
const MaxBodyBytes = 1 << 20

// Schema 已编译的 JSON Schema
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// 各接口请求体 schema
var (
	CreateUser     = MustLoad("user_create")
	Login          = MustLoad("login")
	ChangeUsername = MustLoad("change_username")
	ChangePassword = MustLoad("change_password")
	CreateMember   = MustLoad("member_create")
	CreateProject  = MustLoad("project_create")
	UpdateProject  = MustLoad("project_update")
	CreateResource = MustLoad("resource_create")
	UpdateResource = MustLoad("resource_update")
	CreateSnapshot = MustLoad("snapshot_create")
	UpdateSnapshot = MustLoad("snapshot_update")
	Query          = MustLoad("query")
)

// Load 从嵌入文件编译 schema
func Load(name string) (*Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

// MustLoad 同 Load，失败时 panic
func MustLoad(name string) *Schema {
	s, err := Load(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name 返回 schema 名称
func (s *Schema) Name() string {
	return s.name
}

// Validate 校验 JSON 文档，返回失败原因（按字段排序）；文档合法时返回 nil
func (s *Schema) Validate(doc []byte) []string {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []string{"request body must be a valid JSON document"}
	}
	if result.Valid() {
		return nil
	}

	failures := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		failures = append(failures, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(failures)
	return failures
}

// DecodeBody 读取请求体、按 schema 校验并解码到 dst
//
// 返回非空切片表示客户端错误（请求体过大、非 JSON、不符合 schema）。
func DecodeBody(r *http.Request, s *Schema, dst any) []string {
	if r.Body == nil {
		return []string{"request body is required"}
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return []string{"failed to read request body"}
	}
	if len(data) > MaxBodyBytes {
		return []string{"request body too large"}
	}
	if len(data) == 0 {
		return []string{"request body is required"}
	}
	if !json.Valid(data) {
		return []string{"request body must be a valid JSON document"}
	}
	if failures := s.Validate(data); failures != nil {
		return failures
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return []string{fmt.Sprintf("request body does not match %s: %v", s.name, err)}
	}
	return nil
}
