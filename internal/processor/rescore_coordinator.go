package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"

	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/ratelimit"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/storage/models"
	"resume-screener-go/internal/types"
)

// rescoreLockExpiration 重评锁的兜底过期时间，防止进程异常退出后锁无法释放
const rescoreLockExpiration = 10 * time.Minute

// RescoreReport 人才库重评的汇总结果
type RescoreReport struct {
	Matches   []types.RescoredCandidate `json:"matches"`             // 达到阈值的候选人，按新分数降序
	Failures  []types.RescoreFailure    `json:"failures,omitempty"`  // 单个候选人的评估失败，不中断整体任务
	Evaluated int                       `json:"evaluated"`           // 实际发起模型评估的候选人数量
	Total     int                       `json:"total"`               // 人才库候选人总数
}

// RescoreCoordinator 人才库重评协调器。
// 将库内候选人的简历全文逐一对照新岗位描述重新评估，按阈值过滤后降序返回。
type RescoreCoordinator struct {
	screener   ResumeScreener
	candidates CandidateStore
	locker     RescoreLocker // 可为nil（单实例部署时不需要）
	limiter    *ratelimit.TokenBucket
	workers    int
	logger     *log.Logger
}

// RescoreOption 协调器的配置选项
type RescoreOption func(*RescoreCoordinator)

// WithRescoreLocker 设置分布式锁，防止同一岗位的重评并发执行
func WithRescoreLocker(locker RescoreLocker) RescoreOption {
	return func(c *RescoreCoordinator) {
		c.locker = locker
	}
}

// WithRescoreLogger 设置日志记录器
func WithRescoreLogger(logger *log.Logger) RescoreOption {
	return func(c *RescoreCoordinator) {
		c.logger = logger
	}
}

// NewRescoreCoordinator 创建重评协调器
// workers 控制并发评估的协程数，qpm 约束对模型API的总请求速率
func NewRescoreCoordinator(screener ResumeScreener, candidates CandidateStore, workers int, qpm int, options ...RescoreOption) (*RescoreCoordinator, error) {
	if screener == nil || candidates == nil {
		return nil, fmt.Errorf("重评协调器缺少必要组件")
	}
	if workers <= 0 {
		workers = 4
	}
	if qpm <= 0 {
		qpm = 60
	}

	coordinator := &RescoreCoordinator{
		screener:   screener,
		candidates: candidates,
		limiter:    ratelimit.NewTokenBucket(qpm, workers),
		workers:    workers,
		logger:     log.New(os.Stdout, "[Rescore] ", log.LstdFlags),
	}

	for _, opt := range options {
		opt(coordinator)
	}

	return coordinator, nil
}

type rescoreResult struct {
	index     int
	candidate types.RescoredCandidate
}

// Rescore 对人才库全量候选人执行重评。
// 单个候选人的失败记入 Failures，不影响其他候选人；返回的 Matches 按新分数稳定降序排列。
func (c *RescoreCoordinator) Rescore(ctx context.Context, jobDescription string, threshold int) (*RescoreReport, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, fmt.Errorf("岗位描述不能为空")
	}
	if threshold < constants.MatchScoreMin || threshold > constants.MatchScoreMax {
		return nil, fmt.Errorf("阈值必须在 %d 到 %d 之间, 实际: %d", constants.MatchScoreMin, constants.MatchScoreMax, threshold)
	}

	if c.locker != nil {
		release, err := c.acquireLock(ctx, jobDescription)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	candidates, err := c.candidates.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载人才库失败: %w", err)
	}

	report := &RescoreReport{
		Matches: make([]types.RescoredCandidate, 0),
		Total:   len(candidates),
	}
	if len(candidates) == 0 {
		return report, nil
	}

	var (
		mu       sync.Mutex
		results  []rescoreResult
		failures []types.RescoreFailure
		wg       sync.WaitGroup
	)

	type job struct {
		index     int
		candidate models.Candidate
	}
	jobs := make(chan job)

	workers := c.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	evaluated := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rescored, failure := c.rescoreOne(ctx, jobDescription, &j.candidate)
				mu.Lock()
				if failure != nil {
					failures = append(failures, *failure)
				} else {
					results = append(results, rescoreResult{index: j.index, candidate: *rescored})
				}
				mu.Unlock()
			}
		}()
	}

	for i, candidate := range candidates {
		if strings.TrimSpace(candidate.ResumeText) == "" {
			// 历史数据可能没有简历全文快照，无法重评
			mu.Lock()
			failures = append(failures, types.RescoreFailure{
				Email:  candidate.EmailString(),
				Reason: "没有存储的简历全文，无法重评",
			})
			mu.Unlock()
			continue
		}
		evaluated++
		select {
		case jobs <- job{index: i, candidate: candidate}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// 按新分数降序，同分保持人才库原有顺序
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].candidate.NewMatchScore != results[b].candidate.NewMatchScore {
			return results[a].candidate.NewMatchScore > results[b].candidate.NewMatchScore
		}
		return results[a].index < results[b].index
	})

	for _, r := range results {
		if r.candidate.NewMatchScore >= threshold {
			report.Matches = append(report.Matches, r.candidate)
		}
	}
	report.Failures = failures
	report.Evaluated = evaluated

	c.logger.Printf("重评完成: 共 %d 人, 评估 %d 人, 达标 %d 人, 失败 %d 人",
		report.Total, report.Evaluated, len(report.Matches), len(report.Failures))

	return report, nil
}

// rescoreOne 评估单个候选人，失败时返回失败记录而不是错误
func (c *RescoreCoordinator) rescoreOne(ctx context.Context, jobDescription string, candidate *models.Candidate) (*types.RescoredCandidate, *types.RescoreFailure) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.RescoreFailure{Email: candidate.EmailString(), Reason: fmt.Sprintf("等待限流令牌失败: %v", err)}
	}

	result, err := c.screener.Screen(ctx, jobDescription, candidate.ResumeText)
	if err != nil {
		c.logger.Printf("候选人 %s 重评失败: %v", candidate.EmailString(), err)
		return nil, &types.RescoreFailure{Email: candidate.EmailString(), Reason: err.Error()}
	}

	// 重评结果同样追加进筛选历史；写入失败不吞掉评估结果
	if err := c.recordRescore(ctx, candidate.CandidateID, jobDescription, result); err != nil {
		c.logger.Printf("候选人 %s 的重评记录写入失败: %v", candidate.EmailString(), err)
	}

	return &types.RescoredCandidate{
		FullName:      candidate.FullName,
		Email:         candidate.EmailString(),
		NewMatchScore: result.MatchData.MatchScore,
		Summary:       result.MatchData.Summary,
	}, nil
}

func (c *RescoreCoordinator) recordRescore(ctx context.Context, candidateID string, jobDescription string, result *types.CombinedScreeningResult) error {
	matchJSON, err := json.Marshal(result.MatchData)
	if err != nil {
		return fmt.Errorf("序列化评估结果失败: %w", err)
	}
	return c.candidates.RecordScreening(ctx, &models.ScreeningRecord{
		CandidateID:        candidateID,
		JobRoleTitle:       result.JobRoleTitle,
		MatchScore:         result.MatchData.MatchScore,
		JobDescriptionText: jobDescription,
		MatchData:          datatypes.JSON(matchJSON),
		ScreeningDate:      time.Now(),
	})
}

// acquireLock 获取重评分布式锁，返回释放函数
func (c *RescoreCoordinator) acquireLock(ctx context.Context, jobDescription string) (func(), error) {
	jdDigest := storage.ScreeningDigest("", jobDescription)
	holderID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成锁持有者标识失败: %w", err)
	}
	holder := holderID.String()

	acquired, err := c.locker.AcquireRescoreLock(ctx, jdDigest, holder, rescoreLockExpiration)
	if err != nil {
		// 锁服务不可用时放行，重评本身是幂等的
		c.logger.Printf("获取重评锁失败, 跳过锁保护: %v", err)
		return func() {}, nil
	}
	if !acquired {
		return nil, ErrRescoreInProgress
	}

	return func() {
		if releaseErr := c.locker.ReleaseRescoreLock(context.Background(), jdDigest, holder); releaseErr != nil {
			c.logger.Printf("释放重评锁失败: %v", releaseErr)
		}
	}, nil
}
