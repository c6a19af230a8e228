package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/storage/models"
)

// ErrCandidateNotFound 查询的候选人不存在
var ErrCandidateNotFound = errors.New("候选人不存在")

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Candidate{},
		&models.ScreeningRecord{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// UpsertCandidate 以邮箱为唯一键写入候选人。
// 已存在时刷新姓名、联系方式、结构化解析结果和简历全文快照，返回候选人ID。
// 简历中没有邮箱时以 NULL 邮箱直接插入一条新候选人记录。
func (m *MySQL) UpsertCandidate(ctx context.Context, candidate *models.Candidate) (string, error) {
	if candidate.CandidateID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("生成候选人ID失败: %w", err)
		}
		candidate.CandidateID = id.String()
	}

	if candidate.EmailString() == "" {
		candidate.Email = nil
		if err := m.db.WithContext(ctx).Create(candidate).Error; err != nil {
			return "", fmt.Errorf("写入候选人失败: %w", err)
		}
		return candidate.CandidateID, nil
	}

	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "phone_number", "linkedin_url", "parsed_resume_data", "resume_text", "updated_at",
		}),
	}).Create(candidate).Error
	if err != nil {
		return "", fmt.Errorf("写入候选人失败: %w", err)
	}

	// 冲突更新时 Create 用的是新生成的ID，以库中实际的ID为准
	var stored models.Candidate
	if err := m.db.WithContext(ctx).Select("candidate_id").Where("email = ?", candidate.Email).First(&stored).Error; err != nil {
		return "", fmt.Errorf("回查候选人ID失败: %w", err)
	}
	candidate.CandidateID = stored.CandidateID
	return stored.CandidateID, nil
}

// RecordScreening 追加一条筛选历史记录
func (m *MySQL) RecordScreening(ctx context.Context, record *models.ScreeningRecord) error {
	if record.CandidateID == "" {
		return fmt.Errorf("筛选记录缺少候选人ID")
	}
	if record.ScreeningDate.IsZero() {
		record.ScreeningDate = time.Now()
	}
	if err := m.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("写入筛选记录失败: %w", err)
	}
	return nil
}

// GetCandidateByEmail 按邮箱查询候选人
func (m *MySQL) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).Where("email = ?", email).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	return &candidate, nil
}

// ListCandidates 返回全部候选人，按最近更新时间倒序
func (m *MySQL) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := m.db.WithContext(ctx).Order("updated_at DESC").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("查询候选人列表失败: %w", err)
	}
	return candidates, nil
}

// ListScreeningsByCandidate 返回某候选人的筛选历史，按筛选时间倒序
func (m *MySQL) ListScreeningsByCandidate(ctx context.Context, candidateID string) ([]models.ScreeningRecord, error) {
	var records []models.ScreeningRecord
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).
		Order("screening_date DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询筛选历史失败: %w", err)
	}
	return records, nil
}
