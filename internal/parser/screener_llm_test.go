package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/agent"
	"resume-screener-go/internal/constants"
)

func TestScreenSuccess(t *testing.T) {
	mockClient := agent.NewMockChatClient("```json\n"+validCombinedJSON+"\n```", nil)
	screener, err := NewLLMResumeScreener(mockClient, nil)
	require.NoError(t, err)

	result, err := screener.Screen(context.Background(), "招聘后端工程师", "张伟的简历全文")
	require.NoError(t, err)

	assert.Equal(t, "张伟", result.ResumeData.FullName)
	assert.Equal(t, 82, result.MatchData.MatchScore)
	assert.Equal(t, "后端工程师", result.JobRoleTitle)

	// 发送给模型的消息应包含 system + user 两条，且岗位描述和简历都在 user prompt 中
	received := mockClient.GetReceivedMessages()
	require.Len(t, received, 2)
	assert.Equal(t, schema.System, received[0].Role)
	assert.Equal(t, schema.User, received[1].Role)
	assert.Contains(t, received[1].Content, "招聘后端工程师")
	assert.Contains(t, received[1].Content, "张伟的简历全文")
	assert.Contains(t, received[1].Content, "match_score")
}

func TestScreenJobRoleTitleFallback(t *testing.T) {
	raw := strings.Replace(validCombinedJSON, `"job_role_title": "后端工程师"`, `"job_role_title": null`, 1)
	screener, err := NewLLMResumeScreener(agent.NewMockChatClient(raw, nil), nil)
	require.NoError(t, err)

	result, err := screener.Screen(context.Background(), "一段没有职位名称的描述", "简历全文")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultJobRoleTitle, result.JobRoleTitle)
}

func TestScreenLLMError(t *testing.T) {
	upstreamErr := errors.New("模拟的上游错误")
	screener, err := NewLLMResumeScreener(agent.NewMockChatClient("", upstreamErr), nil)
	require.NoError(t, err)

	_, err = screener.Screen(context.Background(), "岗位描述", "简历全文")
	require.Error(t, err)
	assert.ErrorIs(t, err, upstreamErr)
}

func TestScreenSchemaViolationPropagates(t *testing.T) {
	raw := strings.Replace(validCombinedJSON, `"match_score": 82`, `"match_score": -5`, 1)
	screener, err := NewLLMResumeScreener(agent.NewMockChatClient(raw, nil), nil)
	require.NoError(t, err)

	_, err = screener.Screen(context.Background(), "岗位描述", "简历全文")
	require.Error(t, err)

	var schemaErr *SchemaViolationError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestParseSuccess(t *testing.T) {
	raw := `{
	  "full_name": "李华",
	  "email": "lihua@example.com",
	  "phone_number": "13900139000",
	  "linkedin_url": "https://linkedin.com/in/lihua",
	  "skills": ["Python"],
	  "education": [],
	  "experience": []
	}`
	mockClient := agent.NewMockChatClient(raw, nil)
	screener, err := NewLLMResumeScreener(mockClient, nil)
	require.NoError(t, err)

	result, err := screener.Parse(context.Background(), "李华的简历全文")
	require.NoError(t, err)
	assert.Equal(t, "李华", result.FullName)
	assert.Equal(t, "https://linkedin.com/in/lihua", result.LinkedinURL)

	// 仅解析模式的 prompt 不应包含岗位匹配字段
	received := mockClient.GetReceivedMessages()
	require.Len(t, received, 2)
	assert.NotContains(t, received[1].Content, "match_score")
	assert.Contains(t, received[1].Content, "李华的简历全文")
}

func TestNewLLMResumeScreenerRequiresModel(t *testing.T) {
	_, err := NewLLMResumeScreener(nil, nil)
	require.Error(t, err)
}
