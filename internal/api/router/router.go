package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"resume-screener-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, screeningHandler *handler.ScreeningHandler) {
	// 存活检查
	h.GET("/", screeningHandler.HandleHealth)

	// 简历筛选：multipart 上传，带 job_description 时评估并落库，否则仅解析
	h.POST("/screen/", screeningHandler.HandleScreenResume)

	// 人才库搜索：按新岗位描述全量重评
	h.POST("/search-talent-pool/", screeningHandler.HandleSearchTalentPool)

	// 人才库候选人列表
	h.GET("/resumes/", screeningHandler.HandleListCandidates)

	// 单个候选人的筛选历史
	h.GET("/candidates/:email/screenings", screeningHandler.HandleListScreenings)
}
