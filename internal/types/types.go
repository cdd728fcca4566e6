package types

import "time"

// InboundMessage 消息源投递的单条入站消息。
// ID 由消息提供方分配，全局唯一，用于去重；消息本身只消费一次。
type InboundMessage struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderEmail string    `json:"sender_email"`
	SenderName  string    `json:"sender_name"`
	ReceivedAt  time.Time `json:"received_at"`
}

// MessageKind 入站消息的分类结果
type MessageKind string

const (
	// KindJobRequest 新建面试/职位的请求（主题以 -JD 结尾）
	KindJobRequest MessageKind = "JOB_REQUEST"
	// KindStatusQuery 查询某个面试评估状态的请求（主题为 Status-<uuid>）
	KindStatusQuery MessageKind = "STATUS_QUERY"
	// KindIgnored 其他消息，不处理
	KindIgnored MessageKind = "IGNORED"
)

// Classification 分类器输出。
// StatusID 仅在 KindStatusQuery 时有值；TechHint 仅在 KindJobRequest 时有值，
// 取自主题中 -JD 前的最后一个词，供技术栈提取兜底使用。
type Classification struct {
	Kind     MessageKind
	StatusID string
	TechHint string
}

// JobRequestFields 从自由文本中提取出的职位请求字段。
// 指针字段为 nil 表示未能提取到，绝不猜测填充。
type JobRequestFields struct {
	ClientName   *string
	Responsible  *string
	Phone        *string
	Technology   *string
	PositionType string // 提取失败时使用默认值 "Desarrollador"
}

// NormalizedCandidate 规范化后的单个候选人条目（candidates map 的值）
type NormalizedCandidate struct {
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Recommendation string `json:"recommendation"`
}

// RankingEntry 规范化后的排名条目
type RankingEntry struct {
	CandidateID  string   `json:"candidate_id"`
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	Analysis     string   `json:"analysis"`
	MatchLevel   string   `json:"match_level"`
	KeyStrengths []string `json:"key_strengths"`
}

// SummaryKPIs 汇总块中的关键指标
type SummaryKPIs struct {
	CompletedInterviews int     `json:"completed_interviews"`
	AvgScore            float64 `json:"avg_score"`
}

// SummaryBlock 规范化后的汇总块
type SummaryBlock struct {
	KPIs  SummaryKPIs `json:"kpis"`
	Notes string      `json:"notes"`
}

// CandidateOverview 状态汇总中的单个候选人视图，
// 由候选人元数据与其首条评估记录拼接而成。
type CandidateOverview struct {
	CandidateID          string
	Name                 string
	Email                string
	Phone                string
	TechStack            []string
	CVURL                string
	CompatibilityScore   int
	Recommendation       string
	KnowledgeLevel       string
	PracticalExperience  string
	FullyAnswered        int
	TotalQuestions       int
	Strengths            []string
	Concerns             []string
	Alerts               []string
	ConversationAnalysis string
}

// RankedCandidate 排名中的候选人，Position 取值 1..5
type RankedCandidate struct {
	CandidateOverview
	Position int
}

// StatusOverview 一次状态查询的完整汇总结果
type StatusOverview struct {
	InterviewID     string
	InterviewName   string
	ClientName      string
	ClientEmail     string
	Responsible     string
	Phone           string
	CandidatesCount int
	AvgScore        float64
	Candidates      []CandidateOverview
	Ranking         []RankedCandidate
}
