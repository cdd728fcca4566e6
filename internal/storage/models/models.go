package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Client 客户主表。
// 以邮箱为业务唯一键；首次出现时创建，本核心不会删除，也不会用后续
// 请求中的字段去更新已存在的行（first-write-wins）。
type Client struct {
	ClientID    string    `gorm:"type:char(36);primaryKey"`
	Email       string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_clients_email_unique"`
	Name        string    `gorm:"type:varchar(255)"`
	Responsible *string   `gorm:"type:varchar(255)"`
	Phone       *string   `gorm:"type:varchar(50)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Client) TableName() string {
	return "clients"
}

// Interview 面试/职位表（job posting），追加写入。
// VoiceAgentID 来自外部语音坐席开通协作方，开通失败时为空。
type Interview struct {
	InterviewID  string    `gorm:"type:char(36);primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Description  string    `gorm:"type:text"`
	ClientID     string    `gorm:"type:char(36);not null;index:idx_interviews_client_id"`
	VoiceAgentID *string   `gorm:"type:varchar(100)"`
	CreatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	Client *Client `gorm:"foreignKey:ClientID;references:ClientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Interview) TableName() string {
	return "interviews"
}

// Candidate 候选人表。由外部协作方维护，本核心只读。
type Candidate struct {
	CandidateID   string         `gorm:"type:char(36);primaryKey"`
	Name          string         `gorm:"type:varchar(255)"`
	Email         string         `gorm:"type:varchar(255);index:idx_candidates_email"`
	Phone         string         `gorm:"type:varchar(50)"`
	TechStackJSON datatypes.JSON `gorm:"type:json"`
	CVURL         string         `gorm:"type:varchar(1024)"`
	CreatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// EvaluationRecord 面试评估记录，每行对应一个 面试×候选人。
// 由外部分析流水线写入；本核心在状态汇总时只读。
type EvaluationRecord struct {
	EvaluationID            uint64         `gorm:"primaryKey;autoIncrement"`
	MeetID                  string         `gorm:"type:char(36);not null;index:idx_eval_meet_id"`
	CandidateID             string         `gorm:"type:char(36);not null;index:idx_eval_candidate_id"`
	ConversationAnalysis    string         `gorm:"type:text"`
	TechnicalAssessmentJSON datatypes.JSON `gorm:"type:json"`
	CompletenessSummaryJSON datatypes.JSON `gorm:"type:json"`
	AlertsJSON              datatypes.JSON `gorm:"type:json"`
	MatchEvaluationJSON     datatypes.JSON `gorm:"type:json"`
	CreatedAt               time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_eval_created_at"`
}

func (EvaluationRecord) TableName() string {
	return "evaluation_records"
}

// EvaluationSummary 每个面试一行的规范化评估汇总。
// JDInterviewID 上的唯一索引配合 ON CONFLICT upsert 保证 0或1 行。
type EvaluationSummary struct {
	SummaryID       string         `gorm:"type:char(36);primaryKey"`
	ClientID        string         `gorm:"type:char(36);not null;index:idx_summaries_client_id"`
	JDInterviewID   string         `gorm:"type:char(36);not null;uniqueIndex:idx_summaries_interview_unique"`
	SummaryJSON     datatypes.JSON `gorm:"type:json"`
	CandidatesJSON  datatypes.JSON `gorm:"type:json"`
	RankingJSON     datatypes.JSON `gorm:"type:json"`
	CandidatesCount int            `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (EvaluationSummary) TableName() string {
	return "evaluation_summaries"
}

// MapToJSON 将 map[string]interface{} 转换为 datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// SliceToJSON 将切片转换为 datatypes.JSON
func SliceToJSON(s interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
