package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-screener-go/internal/logger"
)

const (
	// DashScope 的 OpenAI 兼容端点
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-plus"
)

// AliyunQwenChatModel 实现 model.ChatModel 接口，用于与阿里云通义千问模型交互。
// 模型标识在构造时固定，调用失败直接返回类型化错误，不在客户端内部重试或降级。
type AliyunQwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
}

// NewAliyunQwenChatModel 创建一个新的 AliyunQwenChatModel 实例。
func NewAliyunQwenChatModel(apiKey string, modelName string, apiURL string, timeout time.Duration) (*AliyunQwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultQwenModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = openAICompatibleQwenAPIURL
	}

	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("初始化通义千问 LLM 客户端")

	return &AliyunQwenChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ModelName 返回客户端固定使用的模型标识
func (aq *AliyunQwenChatModel) ModelName() string {
	return aq.modelName
}

// --- OpenAI 兼容的请求/响应结构 ---

type openAIChatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"`
}

type openAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

// Generate 实现 model.ChatModel 接口。
// 失败时返回的错误可用 errors.Is 匹配 ErrUpstreamTimeout / ErrUpstreamUnavailable / ErrContentFiltered。
func (aq *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	reqPayload := openAIChatCompletionRequest{
		Model:    aq.modelName,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, aq.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+aq.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Debug().Str("api_url", aq.apiURL).Str("model", aq.modelName).Int("message_count", len(messages)).Msg("发送模型请求")

	httpResp, err := aq.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应体失败: %v", ErrUpstreamUnavailable, err)
	}

	logger.Debug().Int("status_code", httpResp.StatusCode).Int("body_bytes", len(bodyBytes)).Msg("收到模型响应")

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(httpResp.StatusCode, bodyBytes)
	}

	var openAIResp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("%w: 反序列化 API 响应失败: %v", ErrUpstreamUnavailable, err)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: 从 API 收到空选项", ErrUpstreamUnavailable)
	}

	choice := openAIResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, fmt.Errorf("%w: finish_reason=content_filter", ErrContentFiltered)
	}

	responseContent := ""
	if choice.Message.Content != nil {
		responseContent = *choice.Message.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(choice.Message.Role),
		Content: responseContent,
	}
	if resultMessage.Role == "" {
		resultMessage.Role = schema.Assistant
	}

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口。筛选流程只使用一次性完成，不支持流式输出。
func (aq *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("AliyunQwenChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口。筛选流程不使用工具调用。
func (aq *AliyunQwenChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

var _ model.ChatModel = (*AliyunQwenChatModel)(nil)

// classifyTransportError 把传输层错误归入类型化失败
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// classifyHTTPStatus 把非200状态码归入类型化失败
func classifyHTTPStatus(statusCode int, body []byte) error {
	detail := string(body)
	if len(detail) > 512 {
		detail = detail[:512]
	}
	// DashScope 在内容审核拦截时返回 400 并在错误码中标注
	if statusCode == http.StatusBadRequest && strings.Contains(detail, "data_inspection_failed") {
		return fmt.Errorf("%w: %s", ErrContentFiltered, detail)
	}
	if statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout {
		return fmt.Errorf("%w: 状态码 %d: %s", ErrUpstreamTimeout, statusCode, detail)
	}
	return fmt.Errorf("%w: 状态码 %d: %s", ErrUpstreamUnavailable, statusCode, detail)
}
