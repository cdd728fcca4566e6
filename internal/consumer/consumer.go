package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/evaluation"
	"hr-agent-go/internal/intake"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/types"
)

// Manager 持有两条队列消费者的停止句柄
type Manager struct {
	stopChannels []chan struct{}
}

// StartAll 启动入站消息与评估结果两个消费者。
// 永久性的形状错误 ack 后丢弃；瞬时的持久化失败 nack 重新入队。
func StartAll(mq *storage.RabbitMQ, cfg *config.RabbitMQConfig,
	intakeSvc *intake.Service, evaluationSvc *evaluation.Service) (*Manager, error) {

	m := &Manager{}

	if err := mq.EnsureTopology(cfg.IntakeExchange, cfg.IntakeQueue, cfg.IntakeRoutingKey); err != nil {
		return nil, err
	}
	if err := mq.EnsureTopology(cfg.EvaluationExchange, cfg.EvaluationQueue, cfg.EvaluationRoutingKey); err != nil {
		return nil, err
	}

	intakeStop, err := mq.StartConsumer(cfg.IntakeQueue, cfg.PrefetchCount, intakeHandler(intakeSvc))
	if err != nil {
		return nil, err
	}
	m.stopChannels = append(m.stopChannels, intakeStop)

	evaluationStop, err := mq.StartConsumer(cfg.EvaluationQueue, cfg.PrefetchCount, evaluationHandler(evaluationSvc))
	if err != nil {
		m.StopAll()
		return nil, err
	}
	m.stopChannels = append(m.stopChannels, evaluationStop)

	return m, nil
}

// StopAll 停止所有消费者
func (m *Manager) StopAll() {
	for _, stop := range m.stopChannels {
		close(stop)
	}
	m.stopChannels = nil
}

// intakeHandler 入站消息队列的处理函数
func intakeHandler(svc *intake.Service) func([]byte) bool {
	return func(body []byte) bool {
		var event storage.InboundMessageEvent
		if err := json.Unmarshal(body, &event); err != nil {
			logger.Error().Err(err).Msg("入站消息体无法解析，丢弃")
			return true
		}

		msg := types.InboundMessage{
			ID:          event.MessageID,
			Subject:     event.Subject,
			Body:        event.Body,
			SenderEmail: event.SenderEmail,
			SenderName:  event.SenderName,
			ReceivedAt:  event.ReceivedAt,
		}

		ctx := logger.WithContext(context.Background())
		if err := svc.ProcessMessage(ctx, msg); err != nil {
			if errors.Is(err, types.ErrPersistence) {
				logger.Warn().Err(err).Str("message_id", msg.ID).Msg("入站消息处理遇到持久化故障，重新入队")
				return false
			}
			logger.Error().Err(err).Str("message_id", msg.ID).Msg("入站消息处理失败，丢弃")
		}
		return true
	}
}

// evaluationHandler 评估结果队列的处理函数
func evaluationHandler(svc *evaluation.Service) func([]byte) bool {
	return func(body []byte) bool {
		var event storage.EvaluationResultEvent
		if err := json.Unmarshal(body, &event); err != nil {
			logger.Error().Err(err).Msg("评估结果消息体无法解析，丢弃")
			return true
		}
		if event.InterviewID == "" {
			logger.Error().Msg("评估结果缺少 interview_id，丢弃")
			return true
		}

		ctx := logger.WithContext(context.Background())
		_, err := svc.SaveEvaluation(ctx, event.InterviewID,
			event.Summary, event.Candidates, event.Ranking, event.CandidatesCount)
		if err != nil {
			if errors.Is(err, types.ErrPersistence) {
				logger.Warn().Err(err).Str("interview_id", event.InterviewID).
					Msg("评估结果保存遇到持久化故障，重新入队")
				return false
			}
			logger.Error().Err(err).Str("interview_id", event.InterviewID).
				Msg("评估结果保存失败，丢弃")
		}
		return true
	}
}
