package processor

import (
	"context"
	"time"

	"resume-screener-go/internal/storage/models"
	"resume-screener-go/internal/types"
)

//
// 文本提取相关接口
//

// TextExtractor 简历文本提取接口
type TextExtractor interface {
	// Extract 从文件内容中提取纯文本
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

//
// 模型筛选相关接口
//

// ResumeScreener 简历解析与人岗匹配评估接口
type ResumeScreener interface {
	// Parse 仅解析模式：提取结构化简历信息
	Parse(ctx context.Context, resumeText string) (*types.ParsedResume, error)

	// Screen 组合模式：单次模型调用完成解析与岗位匹配评估
	Screen(ctx context.Context, jobDescription string, resumeText string) (*types.CombinedScreeningResult, error)
}

//
// 持久化相关接口
//

// CandidateStore 候选人与筛选历史的持久化接口
type CandidateStore interface {
	// UpsertCandidate 以邮箱为唯一键写入候选人，返回候选人ID
	UpsertCandidate(ctx context.Context, candidate *models.Candidate) (string, error)

	// RecordScreening 追加一条筛选历史记录
	RecordScreening(ctx context.Context, record *models.ScreeningRecord) error

	// GetCandidateByEmail 按邮箱查询候选人
	GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error)

	// ListCandidates 返回全部候选人
	ListCandidates(ctx context.Context) ([]models.Candidate, error)

	// ListScreeningsByCandidate 返回某候选人的筛选历史
	ListScreeningsByCandidate(ctx context.Context, candidateID string) ([]models.ScreeningRecord, error)
}

// DedupStore 筛选去重接口
type DedupStore interface {
	// CheckScreeningDedup 检查筛选摘要是否已存在
	CheckScreeningDedup(ctx context.Context, digest string) (bool, error)

	// AddScreeningDedup 记录筛选摘要
	AddScreeningDedup(ctx context.Context, digest string) error
}

// RescoreLocker 重评分布式锁接口
type RescoreLocker interface {
	// AcquireRescoreLock 获取重评锁，返回是否获取成功
	AcquireRescoreLock(ctx context.Context, jdDigest string, holder string, expiration time.Duration) (bool, error)

	// ReleaseRescoreLock 释放重评锁
	ReleaseRescoreLock(ctx context.Context, jdDigest string, holder string) error
}
