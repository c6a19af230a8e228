package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// ExtractionError 表示从上传文件提取文本失败。
// 空文本（例如纯图片扫描件PDF）也归入此类错误，调用方应将其作为客户端错误上报。
type ExtractionError struct {
	FileName string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("文本提取失败 [%s]: %s: %v", e.FileName, e.Reason, e.Err)
	}
	return fmt.Sprintf("文本提取失败 [%s]: %s", e.FileName, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError 创建一个提取错误
func NewExtractionError(fileName, reason string, err error) *ExtractionError {
	return &ExtractionError{FileName: fileName, Reason: reason, Err: err}
}

// TextExtractor 从简历文件中提取纯文本。
// PDF 走 Eino PDF Parser，其余按 UTF-8 纯文本处理。
type TextExtractor struct {
	pdfParser *pdf.PDFParser
	logger    *log.Logger
}

// TextExtractorOption 提取器的配置选项
type TextExtractorOption func(*TextExtractor)

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) TextExtractorOption {
	return func(e *TextExtractor) {
		e.logger = logger
	}
}

// NewTextExtractor 初始化文本提取器
// PDF 解析配置为不按页面分割，以获取整个文档的连续文本
func NewTextExtractor(ctx context.Context, options ...TextExtractorOption) (*TextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 整个PDF的文本作为单个字符串返回
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &TextExtractor{
		pdfParser: p,
		logger:    log.New(io.Discard, "[文本提取器] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// pdfMagic PDF文件的起始字节
var pdfMagic = []byte("%PDF-")

// Extract 从文件内容中提取纯文本。
// 依据扩展名和文件头判断格式；提取结果为空白时返回 *ExtractionError。
func (e *TextExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", NewExtractionError(fileName, "文件内容为空", nil)
	}

	var text string
	var err error
	if isPDF(data, fileName) {
		text, err = e.extractPDF(ctx, data, fileName)
	} else {
		text, err = e.extractPlainText(data, fileName)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", NewExtractionError(fileName, "提取结果为空文本，文件可能是纯图片扫描件", nil)
	}
	return text, nil
}

// extractPDF 通过 Eino PDF Parser 提取PDF全文
func (e *TextExtractor) extractPDF(ctx context.Context, data []byte, fileName string) (string, error) {
	startTime := time.Now()
	e.logger.Printf("开始处理PDF文件: %s (%.2f MB)", fileName, float64(len(data))/1024/1024)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	extraMeta := map[string]interface{}{
		"source_file_name": fileName,
		"extraction_time":  time.Now().Format(time.RFC3339),
	}

	docs, err := e.pdfParser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(fileName),
		einoParser.WithExtraMeta(extraMeta),
	)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("PDF处理失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", NewExtractionError(fileName, "PDF解析失败", err)
	}

	if len(docs) == 0 {
		e.logger.Printf("PDF解析无结果 (用时 %.2f秒)", duration.Seconds())
		return "", NewExtractionError(fileName, "PDF解析未返回任何内容", nil)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}

	e.logger.Printf("PDF处理完成: 提取了 %d 个字符 (用时 %.2f秒)", sb.Len(), duration.Seconds())
	return sb.String(), nil
}

// extractPlainText 按 UTF-8 纯文本处理，去掉BOM。
// 非法编码直接报错，不做静默修复，避免二进制文件被当作简历文本送入模型。
func (e *TextExtractor) extractPlainText(data []byte, fileName string) (string, error) {
	if !utf8.Valid(data) {
		return "", NewExtractionError(fileName, "文件不是有效的UTF-8文本", nil)
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}

// isPDF 依据文件头或扩展名判断是否为PDF
func isPDF(data []byte, fileName string) bool {
	if bytes.HasPrefix(data, pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}
