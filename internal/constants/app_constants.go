package constants

import "time"

const (
	// MatchScoreMin 匹配分数下限
	MatchScoreMin = 0
	// MatchScoreMax 匹配分数上限，全系统统一使用0-100分制
	MatchScoreMax = 100

	// DefaultJobRoleTitle 当LLM未能从JD中提取岗位名称时使用的兜底值
	DefaultJobRoleTitle = "Unspecified Role"

	// ScreeningDedupExpireDays 筛选去重记录的默认过期天数
	ScreeningDedupExpireDays = 30

	// DefaultModelTimeout 单次LLM调用的默认超时
	DefaultModelTimeout = 90 * time.Second
)

// 固定的四个匹配维度，category字段只允许取这四个值，每个值恰好出现一次
const (
	CategoryEducation  = "Educational Background"
	CategorySkills     = "Technical Skills"
	CategoryExperience = "Relevant Experience/Projects"
	CategorySoftSkills = "Soft Skills"
)

// BreakdownCategories 按固定顺序列出的四个维度
var BreakdownCategories = []string{
	CategoryEducation,
	CategorySkills,
	CategoryExperience,
	CategorySoftSkills,
}
