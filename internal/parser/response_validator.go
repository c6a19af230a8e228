package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/types"
)

// ErrMalformedJSON 模型响应在清理后仍不是一个合法的JSON对象
var ErrMalformedJSON = errors.New("模型响应不是合法的JSON")

// SchemaViolationError 表示JSON虽然合法但不符合输出Schema。
// Violations 罗列全部违规字段路径及原因，而不是在第一处失败时停止。
type SchemaViolationError struct {
	Violations []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("模型响应不符合输出Schema (%d 处违规): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// ResponseValidator 清理并校验模型的JSON响应。
// Schema 在构造时编译一次，校验收集全部违规而非短路。
type ResponseValidator struct {
	parseSchema    *gojsonschema.Schema
	combinedSchema *gojsonschema.Schema
}

// NewResponseValidator 创建一个响应校验器，编译内置的输出Schema
func NewResponseValidator() (*ResponseValidator, error) {
	parseSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(parsedResumeSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("编译简历解析Schema失败: %w", err)
	}
	combinedSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(combinedResultSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("编译组合结果Schema失败: %w", err)
	}
	return &ResponseValidator{
		parseSchema:    parseSchema,
		combinedSchema: combinedSchema,
	}, nil
}

// ValidateParsed 校验仅解析模式的模型响应
func (v *ResponseValidator) ValidateParsed(raw string) (*types.ParsedResume, error) {
	jsonStr, err := v.toValidJSON(raw)
	if err != nil {
		return nil, err
	}

	if err := v.validateAgainstSchema(v.parseSchema, jsonStr, nil); err != nil {
		return nil, err
	}

	var result types.ParsedResume
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return &result, nil
}

// ValidateCombined 校验组合模式的模型响应
func (v *ResponseValidator) ValidateCombined(raw string) (*types.CombinedScreeningResult, error) {
	jsonStr, err := v.toValidJSON(raw)
	if err != nil {
		return nil, err
	}

	// 覆盖性检查基于宽松解码，保证即使类型违规也能和Schema违规一并罗列
	extra := checkBreakdownCategories(extractBreakdownCategories(jsonStr))
	if err := v.validateAgainstSchema(v.combinedSchema, jsonStr, extra); err != nil {
		return nil, err
	}

	var result types.CombinedScreeningResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return &result, nil
}

// extractBreakdownCategories 从原始JSON中宽松提取 match_data.breakdown 的类别名
func extractBreakdownCategories(jsonStr string) []string {
	var doc struct {
		MatchData struct {
			Breakdown []struct {
				Category string `json:"category"`
			} `json:"breakdown"`
		} `json:"match_data"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil
	}
	categories := make([]string, 0, len(doc.MatchData.Breakdown))
	for _, item := range doc.MatchData.Breakdown {
		categories = append(categories, item.Category)
	}
	return categories
}

// toValidJSON 清理模型输出并确认它是一个合法的JSON对象。
// 依次：去BOM、剥离Markdown代码围栏，清理结果已是合法JSON时直接使用；
// 否则按大括号配对截取JSON，必要时修复字符串内未转义的引号。
func (v *ResponseValidator) toValidJSON(raw string) (string, error) {
	cleaned := stripCodeFences(strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF"))

	// 大括号配对无法识别字符串字面量内部的大括号，清理后已是合法JSON时不走截取路径
	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	jsonStr := extractJSONObject(cleaned)
	if jsonStr == "" {
		return "", fmt.Errorf("%w: 响应中找不到JSON对象", ErrMalformedJSON)
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	if json.Valid([]byte(jsonStr)) {
		return jsonStr, nil
	}

	// 解析失败时尝试自动修复字符串内部未转义的双引号，再试一次
	fixed := sanitizeJSON(jsonStr)
	if json.Valid([]byte(fixed)) {
		return fixed, nil
	}
	return "", fmt.Errorf("%w: 修复后仍无法解析", ErrMalformedJSON)
}

// validateAgainstSchema 执行Schema校验，汇总全部违规路径
func (v *ResponseValidator) validateAgainstSchema(schema *gojsonschema.Schema, jsonStr string, extraViolations []string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	violations := make([]string, 0, len(result.Errors())+len(extraViolations))
	for _, resultErr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}
	violations = append(violations, extraViolations...)

	if len(violations) > 0 {
		return &SchemaViolationError{Violations: violations}
	}
	return nil
}

// checkBreakdownCategories 检查评估维度恰好覆盖固定的四个类别各一次。
// JSON Schema 的 enum 只能约束合法取值，覆盖性在这里补充检查。
func checkBreakdownCategories(categories []string) []string {
	counts := make(map[string]int, len(categories))
	for _, category := range categories {
		counts[category]++
	}

	var violations []string
	for _, category := range constants.BreakdownCategories {
		switch counts[category] {
		case 1:
			// ok
		case 0:
			violations = append(violations, fmt.Sprintf("match_data.breakdown: category %q is missing", category))
		default:
			violations = append(violations, fmt.Sprintf("match_data.breakdown: category %q appears %d times, must appear exactly once", category, counts[category]))
		}
	}
	return violations
}

// stripCodeFences 剥离 ```json ... ``` 形式的Markdown代码围栏
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// 围栏后可能紧跟语言标记，如 "json"
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || isFenceLanguageTag(firstLine) {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func isFenceLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// extractJSONObject 按大括号配对从文本中截取第一个完整的JSON对象
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 会遍历 src，将位于字符串字面量内部但并非真正结束的双引号改写为转义形式，
// 以保证整个 JSON 在 Go 端能够正常反序列化。
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false

		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)

		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
