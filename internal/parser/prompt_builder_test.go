package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildParsePrompt(t *testing.T) {
	b := NewPromptBuilder()

	prompt := b.BuildParsePrompt("李华的简历全文")
	assert.Contains(t, prompt, "李华的简历全文")
	// 输出Schema应嵌入在提示词中
	assert.Contains(t, prompt, `"full_name"`)
	assert.Contains(t, prompt, `"education"`)
	assert.NotContains(t, prompt, "match_score")
}

func TestBuildCombinedPrompt(t *testing.T) {
	b := NewPromptBuilder()

	prompt := b.BuildCombinedPrompt("招聘Go后端工程师", "张伟的简历全文")
	assert.Contains(t, prompt, "招聘Go后端工程师")
	assert.Contains(t, prompt, "张伟的简历全文")
	assert.Contains(t, prompt, `"match_score"`)
	assert.Contains(t, prompt, `"job_role_title"`)
	// 四个固定评估维度必须全部出现在提示词中
	assert.Contains(t, prompt, "Educational Background")
	assert.Contains(t, prompt, "Technical Skills")
	assert.Contains(t, prompt, "Relevant Experience/Projects")
	assert.Contains(t, prompt, "Soft Skills")
}

func TestCustomTemplates(t *testing.T) {
	b := NewPromptBuilder(
		WithParseTemplate("自定义解析模板: %s"),
		WithCombinedTemplate("自定义组合模板: %s | %s"),
	)

	assert.Equal(t, "自定义解析模板: 简历", b.BuildParsePrompt("简历"))
	assert.Equal(t, "自定义组合模板: 岗位 | 简历", b.BuildCombinedPrompt("岗位", "简历"))
}
