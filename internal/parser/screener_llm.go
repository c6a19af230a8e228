package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/types"
)

// LLMResumeScreener 封装LLM客户端与提示词逻辑，完成简历解析与人岗匹配评估。
// 每次调用都是一次性的模型请求：失败时直接返回错误，不做重试。
type LLMResumeScreener struct {
	llmModel  model.ChatModel
	prompts   *PromptBuilder
	validator *ResponseValidator
	logger    *log.Logger
}

// LLMResumeScreenerOption 筛选器的配置选项
type LLMResumeScreenerOption func(*LLMResumeScreener)

// WithPromptBuilder 设置自定义的提示词构建器
func WithPromptBuilder(prompts *PromptBuilder) LLMResumeScreenerOption {
	return func(s *LLMResumeScreener) {
		s.prompts = prompts
	}
}

// NewLLMResumeScreener 创建一个新的筛选器实例
func NewLLMResumeScreener(llmModel model.ChatModel, logger *log.Logger, options ...LLMResumeScreenerOption) (*LLMResumeScreener, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLMResumeScreener: llmModel is not initialized")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	validator, err := NewResponseValidator()
	if err != nil {
		return nil, err
	}

	screener := &LLMResumeScreener{
		llmModel:  llmModel,
		prompts:   NewPromptBuilder(),
		validator: validator,
		logger:    logger,
	}

	for _, opt := range options {
		opt(screener)
	}

	return screener, nil
}

// Parse 仅解析模式：从简历文本提取结构化信息，不做岗位匹配
func (s *LLMResumeScreener) Parse(ctx context.Context, resumeText string) (*types.ParsedResume, error) {
	raw, err := s.generate(ctx, s.prompts.BuildParsePrompt(resumeText))
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateParsed(raw)
}

// Screen 组合模式：单次模型调用完成解析与岗位匹配评估
func (s *LLMResumeScreener) Screen(ctx context.Context, jobDescription string, resumeText string) (*types.CombinedScreeningResult, error) {
	raw, err := s.generate(ctx, s.prompts.BuildCombinedPrompt(jobDescription, resumeText))
	if err != nil {
		return nil, err
	}

	result, err := s.validator.ValidateCombined(raw)
	if err != nil {
		return nil, err
	}

	// 岗位名称无法确定时使用统一的占位名
	if strings.TrimSpace(result.JobRoleTitle) == "" {
		result.JobRoleTitle = constants.DefaultJobRoleTitle
	}
	return result, nil
}

func (s *LLMResumeScreener) generate(ctx context.Context, userPrompt string) (string, error) {
	messages := []*einoschema.Message{
		einoschema.SystemMessage(s.prompts.SystemPrompt()),
		einoschema.UserMessage(userPrompt),
	}

	s.logger.Printf("[LLMResumeScreener] User Prompt (first 300 chars): %.300s", userPrompt)

	response, err := s.llmModel.Generate(ctx, messages)
	if err != nil {
		s.logger.Printf("[LLMResumeScreener] LLM call error: %v", err)
		return "", fmt.Errorf("LLMResumeScreener: LLM call failed: %w", err)
	}

	if response == nil || response.Content == "" {
		return "", fmt.Errorf("LLMResumeScreener: LLM returned empty response")
	}
	return response.Content, nil
}
