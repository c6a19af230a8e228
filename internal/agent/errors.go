package agent

import "errors"

// 模型调用的失败分类。调用方依据类别决定如何上报，客户端本身不做重试。
var (
	// ErrUpstreamUnavailable 上游API不可达或返回服务端错误
	ErrUpstreamUnavailable = errors.New("模型服务不可用")
	// ErrUpstreamTimeout 单次调用超出配置的超时时间
	ErrUpstreamTimeout = errors.New("模型调用超时")
	// ErrContentFiltered 上游因内容审核拒绝生成
	ErrContentFiltered = errors.New("内容被模型服务拦截")
)
