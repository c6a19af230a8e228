package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/processor"
	"resume-screener-go/internal/storage/models"
)

// defaultRescoreThreshold 人才库搜索未指定阈值时的默认值
const defaultRescoreThreshold = 60

// ScreeningHandler 简历筛选相关的HTTP处理器
type ScreeningHandler struct {
	processor *processor.ScreeningProcessor
	rescorer  *processor.RescoreCoordinator
	store     processor.CandidateStore
}

// NewScreeningHandler 创建筛选处理器
func NewScreeningHandler(p *processor.ScreeningProcessor, r *processor.RescoreCoordinator, store processor.CandidateStore) *ScreeningHandler {
	return &ScreeningHandler{
		processor: p,
		rescorer:  r,
		store:     store,
	}
}

// HandleScreenResume 处理简历上传筛选。
// 带 job_description 时执行组合筛选并落库；不带时仅解析，不落库。
func (h *ScreeningHandler) HandleScreenResume(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("resume_file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"detail": "缺少简历文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"detail": "打开上传文件失败"})
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"detail": "读取上传文件失败"})
		return
	}

	jobDescription := strings.TrimSpace(c.PostForm("job_description"))

	if jobDescription == "" {
		parsed, err := h.processor.ParseResume(ctx, fileData, fileHeader.Filename)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(consts.StatusOK, utils.H{"resume_data": parsed})
		return
	}

	outcome, err := h.processor.ProcessScreening(ctx, fileData, fileHeader.Filename, jobDescription)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"candidate_id":   outcome.CandidateID,
		"resume_data":    outcome.Result.ResumeData,
		"match_data":     outcome.Result.MatchData,
		"job_role_title": outcome.Result.JobRoleTitle,
	})
}

// HandleSearchTalentPool 对人才库全量候选人按新岗位描述重评，返回达到阈值的候选人
func (h *ScreeningHandler) HandleSearchTalentPool(ctx context.Context, c *app.RequestContext) {
	jobDescription := strings.TrimSpace(c.PostForm("job_description"))
	if jobDescription == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"detail": "缺少岗位描述"})
		return
	}

	threshold := defaultRescoreThreshold
	if raw := strings.TrimSpace(c.PostForm("score_threshold")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"detail": "阈值必须是整数"})
			return
		}
		if parsed < constants.MatchScoreMin || parsed > constants.MatchScoreMax {
			c.JSON(consts.StatusBadRequest, utils.H{"detail": fmt.Sprintf("阈值必须在 %d 到 %d 之间", constants.MatchScoreMin, constants.MatchScoreMax)})
			return
		}
		threshold = parsed
	}

	report, err := h.rescorer.Rescore(ctx, jobDescription, threshold)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(consts.StatusOK, report)
}

// candidateSummary 候选人列表项
type candidateSummary struct {
	CandidateID      string          `json:"candidate_id"`
	FullName         string          `json:"full_name"`
	Email            string          `json:"email"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	LinkedinURL      string          `json:"linkedin_url,omitempty"`
	ParsedResumeData json.RawMessage `json:"parsed_resume_data,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HandleListCandidates 返回人才库的全部候选人
func (h *ScreeningHandler) HandleListCandidates(ctx context.Context, c *app.RequestContext) {
	candidates, err := h.store.ListCandidates(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	summaries := make([]candidateSummary, 0, len(candidates))
	for _, candidate := range candidates {
		summaries = append(summaries, candidateSummary{
			CandidateID:      candidate.CandidateID,
			FullName:         candidate.FullName,
			Email:            candidate.EmailString(),
			PhoneNumber:      candidate.PhoneNumber,
			LinkedinURL:      candidate.LinkedinURL,
			ParsedResumeData: json.RawMessage(candidate.ParsedResumeData),
			UpdatedAt:        candidate.UpdatedAt,
		})
	}
	c.JSON(consts.StatusOK, summaries)
}

// screeningSummary 筛选历史项
type screeningSummary struct {
	JobRoleTitle  string          `json:"job_role_title"`
	MatchScore    int             `json:"match_score"`
	MatchData     json.RawMessage `json:"match_data,omitempty"`
	ScreeningDate time.Time       `json:"screening_date"`
}

// HandleListScreenings 返回某候选人的全部筛选历史
func (h *ScreeningHandler) HandleListScreenings(ctx context.Context, c *app.RequestContext) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"detail": "缺少候选人邮箱"})
		return
	}

	candidate, err := h.store.GetCandidateByEmail(ctx, email)
	if err != nil {
		c.JSON(consts.StatusNotFound, utils.H{"detail": "候选人不存在"})
		return
	}

	records, err := h.store.ListScreeningsByCandidate(ctx, candidate.CandidateID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"candidate_id": candidate.CandidateID,
		"email":        candidate.EmailString(),
		"screenings":   toScreeningSummaries(records),
	})
}

func toScreeningSummaries(records []models.ScreeningRecord) []screeningSummary {
	summaries := make([]screeningSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, screeningSummary{
			JobRoleTitle:  record.JobRoleTitle,
			MatchScore:    record.MatchScore,
			MatchData:     json.RawMessage(record.MatchData),
			ScreeningDate: record.ScreeningDate,
		})
	}
	return summaries
}

// HandleHealth 存活检查
func (h *ScreeningHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

// writeError 把流水线错误映射为HTTP状态码，响应体统一为 {"detail": ...}。
// 客户端输入问题为4xx，重复提交为409，上游模型失败、校验失败和持久化失败统一为500。
func writeError(c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError

	var extractionErr *parser.ExtractionError
	switch {
	case errors.As(err, &extractionErr), errors.Is(err, processor.ErrTextExtractionFailed):
		status = consts.StatusBadRequest
	case errors.Is(err, processor.ErrDuplicateScreening), errors.Is(err, processor.ErrRescoreInProgress):
		status = consts.StatusConflict
	}

	if status >= consts.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("请求处理失败")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("请求被拒绝")
	}

	c.JSON(status, utils.H{"detail": err.Error()})
}
