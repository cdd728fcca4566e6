package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/tracing"
	"hr-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("hr-agent-go/storage/mysql")

// GormTracingPlugin GORM插件，为数据库操作生成OpenTelemetry span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{tracer: mysqlTracer, dbName: dbName}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 为各CRUD操作注册Before/After回调
// callbackRegistrar 抽象GORM回调注册点（具体类型未导出）
type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		before    callbackRegistrar
		after     callbackRegistrar
		operation string
	}{
		{cb.Create().Before("gorm:create"), cb.Create().After("gorm:create"), "CREATE"},
		{cb.Query().Before("gorm:query"), cb.Query().After("gorm:query"), "SELECT"},
		{cb.Update().Before("gorm:update"), cb.Update().After("gorm:update"), "UPDATE"},
		{cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete"), "DELETE"},
		{cb.Row().Before("gorm:row"), cb.Row().After("gorm:row"), "ROW"},
		{cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw"), "RAW"},
	}

	for _, reg := range registrations {
		op := strings.ToLower(reg.operation)
		if err := reg.before.Register("otel:before_"+op, p.before(reg.operation)); err != nil {
			return err
		}
		if err := reg.after.Register("otel:after_"+op, p.after()); err != nil {
			return err
		}
	}
	return nil
}

type gormSpanKey struct{}

// before 在GORM操作前开启span
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 在GORM操作后结束span并记录结果
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// 未命中是业务正常情况，不作为错误上报
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

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
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{db: db, cfg: cfg}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(logger.Silent)})
	return silentDB.AutoMigrate(
		&models.Client{},
		&models.Interview{},
		&models.Candidate{},
		&models.EvaluationRecord{},
		&models.EvaluationSummary{},
	)
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

// FindClientByEmail 按邮箱精确查找客户。
// 未命中时返回 types.ErrClientNotFound。
func (m *MySQL) FindClientByEmail(ctx context.Context, email string) (*models.Client, error) {
	var client models.Client
	err := m.db.WithContext(ctx).Where("email = ?", email).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError(types.ErrClientNotFound, "find_client", email)
		}
		return nil, types.NewPersistenceError("find_client", email, err)
	}
	return &client, nil
}

// InsertClientIfAbsent 插入客户；邮箱已存在时不修改现有行并返回其ID。
// 依靠 email 唯一索引 + ON CONFLICT DO NOTHING 消除并发首见竞态。
func (m *MySQL) InsertClientIfAbsent(ctx context.Context, client *models.Client) (string, bool, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.InsertClientIfAbsent",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.sql.table", "clients"),
		attribute.String("client.email", client.Email),
	)

	result := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(client)
	if result.Error != nil {
		tracing.RecordError(span, result.Error, tracing.ErrorTypeDB)
		return "", false, types.NewPersistenceError("insert_client", client.Email, result.Error)
	}

	if result.RowsAffected > 0 {
		span.SetStatus(codes.Ok, "inserted")
		return client.ClientID, true, nil
	}

	// 冲突即已存在，读取现有行的ID返回
	existing, err := m.FindClientByEmail(ctx, client.Email)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return "", false, err
	}
	span.SetStatus(codes.Ok, "conflict, existing returned")
	return existing.ClientID, false, nil
}

// GetClientByID 按主键获取客户
func (m *MySQL) GetClientByID(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	err := m.db.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError(types.ErrClientNotFound, "get_client", clientID)
		}
		return nil, types.NewPersistenceError("get_client", clientID, err)
	}
	return &client, nil
}

// CreateInterview 追加写入一条面试记录
func (m *MySQL) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := m.db.WithContext(ctx).Create(interview).Error; err != nil {
		return types.NewPersistenceError("create_interview", interview.InterviewID, err)
	}
	return nil
}

// GetInterviewByID 按主键获取面试记录。
// 未命中时返回 types.ErrInterviewNotFound。
func (m *MySQL) GetInterviewByID(ctx context.Context, interviewID string) (*models.Interview, error) {
	var interview models.Interview
	err := m.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError(types.ErrInterviewNotFound, "get_interview", interviewID)
		}
		return nil, types.NewPersistenceError("get_interview", interviewID, err)
	}
	return &interview, nil
}

// GetCandidateByID 按主键获取候选人（只读表）
func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError(types.ErrCandidateNotFound, "get_candidate", candidateID)
		}
		return nil, types.NewPersistenceError("get_candidate", candidateID, err)
	}
	return &candidate, nil
}

// ListEvaluationsByMeetID 获取某个面试下的全部评估记录，按写入顺序返回
func (m *MySQL) ListEvaluationsByMeetID(ctx context.Context, meetID string) ([]models.EvaluationRecord, error) {
	var records []models.EvaluationRecord
	err := m.db.WithContext(ctx).
		Where("meet_id = ?", meetID).
		Order("created_at ASC, evaluation_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, types.NewPersistenceError("list_evaluations", meetID, err)
	}
	return records, nil
}

// UpsertEvaluationSummary 以 jd_interview_id 为冲突键做幂等upsert，
// 返回最终行的SummaryID。同一面试顺序调用两次只会留下一行，内容为后一次。
func (m *MySQL) UpsertEvaluationSummary(ctx context.Context, summary *models.EvaluationSummary) (string, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpsertEvaluationSummary",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.sql.table", "evaluation_summaries"),
		attribute.String("interview.id", summary.JDInterviewID),
	)

	err := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "jd_interview_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"summary_json", "candidates_json", "ranking_json", "candidates_count", "updated_at",
			}),
		}).Create(summary).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return "", types.NewPersistenceError("upsert_summary", summary.JDInterviewID, err)
	}

	// 冲突更新时保留原行ID，重新读取以返回实际落库的ID
	var persisted models.EvaluationSummary
	err = m.db.WithContext(ctx).
		Select("summary_id").
		Where("jd_interview_id = ?", summary.JDInterviewID).
		First(&persisted).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return "", types.NewPersistenceError("upsert_summary", summary.JDInterviewID, err)
	}

	span.SetStatus(codes.Ok, "")
	return persisted.SummaryID, nil
}

// FindSummaryByInterviewID 查询某面试的汇总行（最多一行）
func (m *MySQL) FindSummaryByInterviewID(ctx context.Context, interviewID string) (*models.EvaluationSummary, error) {
	var summary models.EvaluationSummary
	err := m.db.WithContext(ctx).
		Where("jd_interview_id = ?", interviewID).
		Order("updated_at DESC").
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, types.NewPersistenceError("find_summary", interviewID, err)
	}
	return &summary, nil
}
