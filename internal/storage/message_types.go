package storage

import "time"

// InboundMessageEvent 消息源协作方投递到入站队列的消息体
type InboundMessageEvent struct {
	MessageID   string    `json:"message_id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderEmail string    `json:"sender_email"`
	SenderName  string    `json:"sender_name"`
	ReceivedAt  time.Time `json:"received_at"`
}

// EvaluationResultEvent 分析协作方产出的评估结果消息体。
// summary/candidates/ranking 三个载荷形状松散（对象或JSON字符串），
// 由评估规范化器在入口处统一解析。
type EvaluationResultEvent struct {
	InterviewID     string      `json:"interview_id"`
	Summary         interface{} `json:"summary"`
	Candidates      interface{} `json:"candidates"`
	Ranking         interface{} `json:"ranking"`
	CandidatesCount *int        `json:"candidates_count,omitempty"`
}
