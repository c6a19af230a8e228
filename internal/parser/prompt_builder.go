package parser

import (
	"fmt"
	"strings"
)

// 输出结构的 JSON Schema。
// 同时嵌入到提示词中约束模型输出，并交给响应校验器做结构化校验。
const parsedResumeSchemaJSON = `{
  "type": "object",
  "required": ["full_name", "skills", "education", "experience"],
  "properties": {
    "full_name": {"type": "string", "minLength": 1},
    "email": {"type": ["string", "null"]},
    "phone_number": {"type": ["string", "null"]},
    "linkedin_url": {"type": ["string", "null"]},
    "skills": {
      "type": "array",
      "items": {"type": "string"}
    },
    "education": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["institution", "degree"],
        "properties": {
          "institution": {"type": "string"},
          "degree": {"type": "string"},
          "major": {"type": ["string", "null"]},
          "graduation_year": {"type": ["integer", "null"]}
        }
      }
    },
    "experience": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "start_date", "description"],
        "properties": {
          "company": {"type": ["string", "null"]},
          "role": {"type": "string"},
          "start_date": {"type": "string"},
          "end_date": {"type": ["string", "null"]},
          "description": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

const matchResultSchemaJSON = `{
  "type": "object",
  "required": ["match_score", "summary", "strengths", "weaknesses", "breakdown"],
  "properties": {
    "match_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "summary": {"type": "string", "minLength": 1},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "breakdown": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "match_percentage"],
        "properties": {
          "category": {
            "type": "string",
            "enum": ["Educational Background", "Technical Skills", "Relevant Experience/Projects", "Soft Skills"]
          },
          "match_percentage": {"type": "integer", "minimum": 0, "maximum": 100}
        }
      }
    }
  }
}`

// combinedResultSchemaJSON 组合模式的顶层 schema，嵌套上面两个子结构
var combinedResultSchemaJSON = `{
  "type": "object",
  "required": ["resume_data", "match_data"],
  "properties": {
    "resume_data": ` + indentSchema(parsedResumeSchemaJSON, 4) + `,
    "match_data": ` + indentSchema(matchResultSchemaJSON, 4) + `,
    "job_role_title": {"type": ["string", "null"]}
  }
}`

// indentSchema 把嵌入的子 schema 缩进到嵌套层级，保持提示词中的可读性
func indentSchema(schemaStr string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(schemaStr, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

// PromptBuilder 构建简历解析与岗位匹配评估的提示词。
// 两种模式：仅解析（不提供岗位描述时）和解析+评估的组合模式。
type PromptBuilder struct {
	parseTemplate    string
	combinedTemplate string
}

// PromptBuilderOption 提示词构建器的配置选项
type PromptBuilderOption func(*PromptBuilder)

// WithParseTemplate 设置自定义的仅解析模板，模板需含一个 %s 占位符（简历文本）
func WithParseTemplate(template string) PromptBuilderOption {
	return func(b *PromptBuilder) {
		b.parseTemplate = template
	}
}

// WithCombinedTemplate 设置自定义的组合模板，模板需含两个 %s 占位符（岗位描述、简历文本）
func WithCombinedTemplate(template string) PromptBuilderOption {
	return func(b *PromptBuilder) {
		b.combinedTemplate = template
	}
}

// NewPromptBuilder 创建一个新的提示词构建器
func NewPromptBuilder(options ...PromptBuilderOption) *PromptBuilder {
	builder := &PromptBuilder{}
	builder.generateParseTemplate()
	builder.generateCombinedTemplate()

	for _, opt := range options {
		opt(builder)
	}

	return builder
}

// SystemPrompt 返回两种模式共用的 system message
func (b *PromptBuilder) SystemPrompt() string {
	return "你是一位资深的AI招聘助手，擅长从简历文本中提取结构化信息并评估人岗匹配度。你只输出合法的JSON对象，不输出任何其他内容。"
}

// BuildParsePrompt 构建仅解析模式的 user message
func (b *PromptBuilder) BuildParsePrompt(resumeText string) string {
	return fmt.Sprintf(b.parseTemplate, resumeText)
}

// BuildCombinedPrompt 构建解析+评估组合模式的 user message
func (b *PromptBuilder) BuildCombinedPrompt(jobDescription string, resumeText string) string {
	return fmt.Sprintf(b.combinedTemplate, jobDescription, resumeText)
}

func (b *PromptBuilder) generateParseTemplate() {
	b.parseTemplate = `你的任务是从下面的【候选人简历】文本中提取结构化信息，并严格按照以下JSON Schema输出一个JSON对象：

` + parsedResumeSchemaJSON + `

**输出要求：**
- 完整输出必须是一个合法的JSON对象，且符合上述Schema。
- 所有字段名使用上述Schema中的英文名称，字符串值保留简历原文的语言。
- 简历中无法确定的可选字段输出 null，数组类字段找不到内容时输出空数组 []。
- "email" 必须是简历中出现的联系邮箱，原样保留，不得臆造；简历中没有邮箱时输出 null。
- "experience" 中每段经历的 "description" 是要点列表，每个要点一个字符串；仍在职的经历 "end_date" 输出 "Present"。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

【候选人简历】:
"""
%s
"""

请基于以上指令输出JSON结果。`
}

func (b *PromptBuilder) generateCombinedTemplate() {
	b.combinedTemplate = `你的任务分两步：第一步，从【候选人简历】中提取结构化信息；第二步，对照【岗位描述】深入评估该候选人的匹配程度。最终严格按照以下JSON Schema输出一个JSON对象：

` + combinedResultSchemaJSON + `

**评估要求：**
1. "match_data.match_score": 整数 (0-100)，反映整体匹配程度。不满足岗位硬性要求（学历、必备技能）时分数应显著降低。
2. "match_data.summary": 针对此岗位生成的候选人核心摘要，突出最相关的技能与经验，控制在150字以内。
3. "match_data.strengths": 字符串数组，候选人与岗位高度匹配的具体关键点，避免空泛描述。
4. "match_data.weaknesses": 字符串数组，候选人相对岗位的具体不足或需进一步考察之处；即使整体匹配度高也请指出可提升点。
5. "match_data.breakdown": 必须且只能包含以下四个评估维度，每个维度出现一次，"match_percentage" 为 0-100 的整数：
   - "Educational Background"
   - "Technical Skills"
   - "Relevant Experience/Projects"
   - "Soft Skills"
6. "job_role_title": 从【岗位描述】中提取的职位名称；无法确定时输出 null。

**输出要求：**
- 完整输出必须是一个合法的JSON对象，且符合上述Schema。
- 简历中无法确定的可选字段输出 null，数组类字段找不到内容时输出空数组 []。
- 字符串值内部的双引号必须使用反斜杠转义。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

【岗位描述】:
"""
%s
"""

【候选人简历】:
"""
%s
"""

请基于以上所有指令，仔细评估并输出JSON结果。`
}
