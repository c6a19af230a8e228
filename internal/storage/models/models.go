package models

import (
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表，邮箱全局唯一。
// 重复筛选同一邮箱的候选人时刷新姓名、结构化解析结果和简历全文快照。
// 简历中没有邮箱时 Email 为 NULL（唯一索引允许多个NULL），这类候选人无法跨次识别。
type Candidate struct {
	CandidateID      string         `gorm:"type:char(36);primaryKey"`
	FullName         string         `gorm:"type:varchar(255);not null"`
	Email            *string        `gorm:"type:varchar(255);uniqueIndex:idx_candidates_email_unique"`
	PhoneNumber      string         `gorm:"type:varchar(50)"`
	LinkedinURL      string         `gorm:"type:varchar(512)"`
	ParsedResumeData datatypes.JSON `gorm:"type:json"`
	ResumeText       string         `gorm:"type:longtext"` // 提取后的简历全文，重评时直接复用
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Screenings []ScreeningRecord `gorm:"foreignKey:CandidateID;references:CandidateID"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// EmailString 返回邮箱，邮箱为NULL时返回空字符串
func (c *Candidate) EmailString() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// ScreeningRecord 筛选历史表，只追加不更新
type ScreeningRecord struct {
	RecordID           uint64         `gorm:"primaryKey;autoIncrement"`
	CandidateID        string         `gorm:"type:char(36);not null;index:idx_sr_candidate_id"`
	JobRoleTitle       string         `gorm:"type:varchar(255);not null"`
	MatchScore         int            `gorm:"type:int;not null;index:idx_sr_match_score"`
	JobDescriptionText string         `gorm:"type:text;not null"`
	MatchData          datatypes.JSON `gorm:"type:json"`
	ScreeningDate      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_sr_screening_date"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ScreeningRecord) TableName() string {
	return "screening_records"
}
