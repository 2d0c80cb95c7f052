package extractor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/logger"
)

// Extractor 将源文件转换为纯文本
// 提取失败尽量降级：不可读的页产出空串，而不是让整个文档失败
type Extractor struct {
	log *zap.Logger
}

// New 创建文本提取器
func New() *Extractor {
	return &Extractor{log: logger.GetLogger()}
}

// Supports 检查文件格式是否支持
func (e *Extractor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// Extract 提取文件文本
// 返回空串表示"无可提取内容"，是合法结果而不是错误
func (e *Extractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(path)
	case ".docx":
		return e.extractDocx(path)
	default:
		return e.extractText(path)
	}
}

// extractPDF 逐页提取PDF文本，页之间以换行分隔
// 单页提取失败只丢掉该页，剩余可读页照常索引
func (e *Extractor) extractPDF(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(raw))
	if err != nil {
		e.log.Warn("无法解析PDF，按空文档处理",
			zap.String("path", path), zap.Error(err))
		return "", nil
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		e.log.Warn("无法获取PDF页数，按空文档处理",
			zap.String("path", path), zap.Error(err))
		return "", nil
	}

	var builder strings.Builder
	for i := 1; i <= numPages; i++ {
		text := ""
		page, err := pdfReader.GetPage(i)
		if err == nil {
			if ex, err := extractor.New(page); err == nil {
				if pageText, err := ex.ExtractText(); err == nil {
					text = pageText
				} else {
					e.log.Debug("页文本提取失败", zap.String("path", path), zap.Int("page", i), zap.Error(err))
				}
			}
		}
		if i > 1 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}

// extractDocx 提取Word文档文本（仅支持.docx）
func (e *Extractor) extractDocx(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx %s: %w", path, err)
	}

	doc, err := document.Read(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		e.log.Warn("无法解析Word文档，按空文档处理",
			zap.String("path", path), zap.Error(err))
		return "", nil
	}
	defer doc.Close()

	var builder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			builder.WriteString(run.Text())
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// extractText 读取纯文本文件，丢弃非法字节序列而不是报错
func (e *Extractor) extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(raw), ""), nil
}
