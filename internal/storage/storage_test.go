package storage

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/storage/models"
)

func TestScreeningDigest(t *testing.T) {
	d1 := ScreeningDigest("简历A", "岗位X")
	d2 := ScreeningDigest("简历A", "岗位X")
	d3 := ScreeningDigest("简历A", "岗位Y")
	d4 := ScreeningDigest("简历B", "岗位X")

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.NotEqual(t, d1, d4)
	assert.Len(t, d1, 32)
}

// 需要本地MySQL实例，默认跳过。设置 TEST_MYSQL_HOST 后运行。
func newTestMySQL(t *testing.T) *MySQL {
	t.Helper()
	host := os.Getenv("TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("未设置 TEST_MYSQL_HOST，跳过MySQL集成测试")
	}

	cfg := &config.MySQLConfig{
		Host:                  host,
		Port:                  3306,
		Username:              envOrDefault("TEST_MYSQL_USER", "root"),
		Password:              os.Getenv("TEST_MYSQL_PASSWORD"),
		Database:              envOrDefault("TEST_MYSQL_DATABASE", "resume_screener_test"),
		MaxIdleConns:          2,
		MaxOpenConns:          5,
		ConnectTimeoutSeconds: 5,
		ReadTimeoutSeconds:    10,
		WriteTimeoutSeconds:   10,
		LogLevel:              1,
	}

	m, err := NewMySQL(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestUpsertCandidateRefreshesSnapshot(t *testing.T) {
	m := newTestMySQL(t)
	ctx := context.Background()

	email := "upsert-test@example.com"
	m.DB().Where("email = ?", email).Delete(&models.Candidate{})

	first := &models.Candidate{
		FullName:         "张伟",
		Email:            &email,
		PhoneNumber:      "13800138000",
		ParsedResumeData: datatypes.JSON(`{"skills":["Go"]}`),
		ResumeText:       "第一版简历全文",
	}
	id1, err := m.UpsertCandidate(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	// 同一邮箱再次筛选：ID不变，快照刷新
	second := &models.Candidate{
		FullName:         "张伟（更新）",
		Email:            &email,
		PhoneNumber:      "13900139000",
		ParsedResumeData: datatypes.JSON(`{"skills":["Go","Rust"]}`),
		ResumeText:       "第二版简历全文",
	}
	id2, err := m.UpsertCandidate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	stored, err := m.GetCandidateByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "张伟（更新）", stored.FullName)
	assert.Equal(t, "第二版简历全文", stored.ResumeText)
}

func TestUpsertCandidateWithoutEmailInsertsNew(t *testing.T) {
	m := newTestMySQL(t)
	ctx := context.Background()

	m.DB().Where("email IS NULL AND full_name = ?", "匿名候选人").Delete(&models.Candidate{})

	// 无邮箱的候选人无法跨次识别，每次筛选都插入新记录
	id1, err := m.UpsertCandidate(ctx, &models.Candidate{FullName: "匿名候选人", ResumeText: "第一份"})
	require.NoError(t, err)
	id2, err := m.UpsertCandidate(ctx, &models.Candidate{FullName: "匿名候选人", ResumeText: "第二份"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	var count int64
	m.DB().Model(&models.Candidate{}).Where("email IS NULL AND full_name = ?", "匿名候选人").Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestRecordScreeningAppendOnly(t *testing.T) {
	m := newTestMySQL(t)
	ctx := context.Background()

	email := "history-test@example.com"
	m.DB().Where("email = ?", email).Delete(&models.Candidate{})

	candidateID, err := m.UpsertCandidate(ctx, &models.Candidate{
		FullName:   "李华",
		Email:      &email,
		ResumeText: "简历全文",
	})
	require.NoError(t, err)

	m.DB().Where("candidate_id = ?", candidateID).Delete(&models.ScreeningRecord{})

	for i, score := range []int{70, 85} {
		err := m.RecordScreening(ctx, &models.ScreeningRecord{
			CandidateID:        candidateID,
			JobRoleTitle:       "后端工程师",
			MatchScore:         score,
			JobDescriptionText: "岗位描述",
			MatchData:          datatypes.JSON(fmt.Sprintf(`{"match_score":%d}`, score)),
		})
		require.NoError(t, err, "record %d", i)
	}

	records, err := m.ListScreeningsByCandidate(ctx, candidateID)
	require.NoError(t, err)
	// 两次筛选都保留，不覆盖
	assert.Len(t, records, 2)
}

func TestGetCandidateByEmailNotFound(t *testing.T) {
	m := newTestMySQL(t)

	_, err := m.GetCandidateByEmail(context.Background(), "no-such-candidate@example.com")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
}
