package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"

	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/storage/models"
	"resume-screener-go/internal/types"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	Extractor  TextExtractor  // 简历文本提取
	Screener   ResumeScreener // 模型解析与评估
	Candidates CandidateStore // 候选人持久化
	Dedup      DedupStore     // 筛选去重，可为nil（去重短路关闭）
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	ModelTimeout time.Duration // 单次模型调用超时
	Logger       *log.Logger   // 日志记录器
}

// SettingOpt 配置选项函数
type SettingOpt func(*Settings)

// WithProcessorLogger 设置日志记录器
func WithProcessorLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithModelTimeout 设置单次模型调用超时
func WithModelTimeout(timeout time.Duration) SettingOpt {
	return func(s *Settings) {
		s.ModelTimeout = timeout
	}
}

// ScreeningOutcome 一次筛选的完整结果
type ScreeningOutcome struct {
	CandidateID string                         `json:"candidate_id"`
	Result      *types.CombinedScreeningResult `json:"result"`
}

// ScreeningProcessor 筛选流水线：提取 -> 模型评估 -> 持久化
type ScreeningProcessor struct {
	extractor  TextExtractor
	screener   ResumeScreener
	candidates CandidateStore
	dedup      DedupStore

	modelTimeout time.Duration
	logger       *log.Logger
}

// NewScreeningProcessor 创建筛选处理器，组件与设置分离传入
func NewScreeningProcessor(comp *Components, set *Settings, opts ...SettingOpt) (*ScreeningProcessor, error) {
	if comp == nil || comp.Extractor == nil || comp.Screener == nil || comp.Candidates == nil {
		return nil, fmt.Errorf("筛选处理器缺少必要组件")
	}
	if set == nil {
		set = &Settings{}
	}
	for _, opt := range opts {
		opt(set)
	}

	if set.Logger == nil {
		set.Logger = log.New(os.Stdout, "[Processor] ", log.LstdFlags)
	}
	if set.ModelTimeout <= 0 {
		set.ModelTimeout = constants.DefaultModelTimeout
	}

	return &ScreeningProcessor{
		extractor:    comp.Extractor,
		screener:     comp.Screener,
		candidates:   comp.Candidates,
		dedup:        comp.Dedup,
		modelTimeout: set.ModelTimeout,
		logger:       set.Logger,
	}, nil
}

// ProcessScreening 执行一次完整筛选：提取文本、模型评估、落库。
// 同一份简历对同一岗位的重复请求被去重集合短路。
func (p *ScreeningProcessor) ProcessScreening(ctx context.Context, fileData []byte, fileName string, jobDescription string) (*ScreeningOutcome, error) {
	resumeText, err := p.extractor.Extract(ctx, fileData, fileName)
	if err != nil {
		return nil, NewExtractionProcessError(fileName, err)
	}

	digest := storage.ScreeningDigest(resumeText, jobDescription)
	if p.dedup != nil {
		exists, dedupErr := p.dedup.CheckScreeningDedup(ctx, digest)
		if dedupErr != nil {
			// 去重集合不可用时放行，不拦截筛选
			p.logger.Printf("检查筛选去重失败, 跳过去重: %v", dedupErr)
		} else if exists {
			return nil, NewDuplicateError(fileName, "该简历与岗位描述的组合近期已筛选过")
		}
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.modelTimeout)
	defer cancel()

	result, err := p.screener.Screen(modelCtx, jobDescription, resumeText)
	if err != nil {
		return nil, NewScreeningError(fileName, err)
	}

	candidateID, err := p.persistOutcome(ctx, result, resumeText, jobDescription)
	if err != nil {
		return nil, NewPersistenceError(fileName, err)
	}

	if p.dedup != nil {
		if dedupErr := p.dedup.AddScreeningDedup(ctx, digest); dedupErr != nil {
			p.logger.Printf("写入筛选去重记录失败: %v", dedupErr)
		}
	}

	p.logger.Printf("筛选完成: 候选人 %s, 岗位 %q, 得分 %d",
		result.ResumeData.Email, result.JobRoleTitle, result.MatchData.MatchScore)

	return &ScreeningOutcome{
		CandidateID: candidateID,
		Result:      result,
	}, nil
}

// ParseResume 仅解析模式：提取文本并返回结构化简历信息，不评估、不落库
func (p *ScreeningProcessor) ParseResume(ctx context.Context, fileData []byte, fileName string) (*types.ParsedResume, error) {
	resumeText, err := p.extractor.Extract(ctx, fileData, fileName)
	if err != nil {
		return nil, NewExtractionProcessError(fileName, err)
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.modelTimeout)
	defer cancel()

	parsed, err := p.screener.Parse(modelCtx, resumeText)
	if err != nil {
		return nil, NewScreeningError(fileName, err)
	}
	return parsed, nil
}

// persistOutcome 以邮箱为唯一键落库候选人，并追加一条筛选历史
func (p *ScreeningProcessor) persistOutcome(ctx context.Context, result *types.CombinedScreeningResult, resumeText, jobDescription string) (string, error) {
	parsedJSON, err := json.Marshal(result.ResumeData)
	if err != nil {
		return "", fmt.Errorf("序列化解析结果失败: %w", err)
	}
	matchJSON, err := json.Marshal(result.MatchData)
	if err != nil {
		return "", fmt.Errorf("序列化评估结果失败: %w", err)
	}

	var email *string
	if addr := strings.TrimSpace(result.ResumeData.Email); addr != "" {
		email = &addr
	}

	candidateID, err := p.candidates.UpsertCandidate(ctx, &models.Candidate{
		FullName:         result.ResumeData.FullName,
		Email:            email,
		PhoneNumber:      result.ResumeData.PhoneNumber,
		LinkedinURL:      result.ResumeData.LinkedinURL,
		ParsedResumeData: datatypes.JSON(parsedJSON),
		ResumeText:       resumeText,
	})
	if err != nil {
		return "", err
	}

	err = p.candidates.RecordScreening(ctx, &models.ScreeningRecord{
		CandidateID:        candidateID,
		JobRoleTitle:       result.JobRoleTitle,
		MatchScore:         result.MatchData.MatchScore,
		JobDescriptionText: jobDescription,
		MatchData:          datatypes.JSON(matchJSON),
		ScreeningDate:      time.Now(),
	})
	if err != nil {
		return "", err
	}
	return candidateID, nil
}
