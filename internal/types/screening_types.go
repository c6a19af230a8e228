package types

// Education 教育经历
type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Major          string `json:"major,omitempty"`
	GraduationYear *int   `json:"graduation_year,omitempty"`
}

// Experience 工作/项目经历
// EndDate 允许使用 "Present" 表示至今
type Experience struct {
	Company     string   `json:"company,omitempty"`
	Role        string   `json:"role"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date,omitempty"`
	Description []string `json:"description"`
}

// ParsedResume LLM从简历文本中抽取出的结构化信息
// 经过响应校验器验证后即视为不可变
type ParsedResume struct {
	FullName    string       `json:"full_name"`
	Email       string       `json:"email,omitempty"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	LinkedinURL string       `json:"linkedin_url,omitempty"`
	Skills      []string     `json:"skills"`
	Education   []Education  `json:"education"`
	Experience  []Experience `json:"experience"`
}

// MatchBreakdownItem 单个维度的匹配度
// Category 只允许取 constants.BreakdownCategories 中的四个固定值
type MatchBreakdownItem struct {
	Category        string `json:"category"`
	MatchPercentage int    `json:"match_percentage"`
}

// MatchResult 简历与岗位的匹配评估结果，分数统一为0-100分制
type MatchResult struct {
	MatchScore int                  `json:"match_score"`
	Summary    string               `json:"summary"`
	Strengths  []string             `json:"strengths"`
	Weaknesses []string             `json:"weaknesses"`
	Breakdown  []MatchBreakdownItem `json:"breakdown"`
}

// CombinedScreeningResult 单次筛选的完整产出，一次LLM调用同时得到解析与评分
type CombinedScreeningResult struct {
	ResumeData   ParsedResume `json:"resume_data"`
	MatchData    MatchResult  `json:"match_data"`
	JobRoleTitle string       `json:"job_role_title,omitempty"`
}

// RescoredCandidate 人才库重评后的单个候选人条目
type RescoredCandidate struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	NewMatchScore int    `json:"new_match_score"`
	Summary       string `json:"summary"`
}

// RescoreFailure 人才库重评中单个候选人的失败记录
// 批量重评按条目报告失败，不做整体失败
type RescoreFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}
