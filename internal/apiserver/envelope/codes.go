package envelope

// Code 错误码，每个错误码只对应一个失败位置
type Code string

// 认证
const (
	AUTH001 Code = "AUTH001" // 创建用户
	AUTH002 Code = "AUTH002" // 列出用户
	AUTH003 Code = "AUTH003" // 删除用户
	AUTH004 Code = "AUTH004" // 登录
	AUTH005 Code = "AUTH005" // 登出
	AUTH006 Code = "AUTH006" // 修改用户名
	AUTH007 Code = "AUTH007" // 修改密码
	AUTH008 Code = "AUTH008" // 刷新 access token
	AUTH009 Code = "AUTH009" // 权限校验查询存储失败
)

// 成员
const (
	MEMBER001 Code = "MEMBER001" // 请求体校验
	MEMBER002 Code = "MEMBER002" // 创建成员
	MEMBER003 Code = "MEMBER003" // 列出成员
	MEMBER004 Code = "MEMBER004" // 按项目列出成员
)

// 项目
const (
	PROJECT001 Code = "PROJECT001" // 创建
	PROJECT002 Code = "PROJECT002" // 列表
	PROJECT003 Code = "PROJECT003" // 查询单个
	PROJECT004 Code = "PROJECT004" // 更新
	PROJECT005 Code = "PROJECT005" // 删除
)

// 资源
const (
	RESOURCE001 Code = "RESOURCE001" // 创建
	RESOURCE002 Code = "RESOURCE002" // 按分类列出
	RESOURCE003 Code = "RESOURCE003" // 查询单个
	RESOURCE004 Code = "RESOURCE004" // 更新
	RESOURCE005 Code = "RESOURCE005" // 删除
	RESOURCE006 Code = "RESOURCE006" // 上传附件
	RESOURCE007 Code = "RESOURCE007" // 下载附件
	RESOURCE008 Code = "RESOURCE008" // 所有权校验
)

// 快照
const (
	SNAPSHOT001 Code = "SNAPSHOT001" // 创建
	SNAPSHOT002 Code = "SNAPSHOT002" // 列表
	SNAPSHOT003 Code = "SNAPSHOT003" // 删除
	SNAPSHOT004 Code = "SNAPSHOT004" // 查询单个
	SNAPSHOT005 Code = "SNAPSHOT005" // 更新
)

// 查询
const (
	QUERY001 Code = "QUERY001" // 管道不合法
	QUERY002 Code = "QUERY002" // 执行失败
)

// 服务
const (
	SERVER001 Code = "SERVER001" // 处理器 panic
	SERVER002 Code = "SERVER002" // API 文档不可用
)
