package intake

import (
	"context"
	"time"

	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/types"
)

// MessageSource 邮件源协作方：拉取未读消息并标记已读
type MessageSource interface {
	FetchUnread(ctx context.Context) ([]types.InboundMessage, error)
	MarkRead(ctx context.Context, messageID string) error
}

// EventPublisher 入站消息转发到消息队列的能力
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

// Poller 周期性拉取收件箱。默认逐条同步处理；
// 配置了转发目标时改为发布到消息队列，由队列消费者异步处理。
type Poller struct {
	svc        *Service
	source     MessageSource
	queue      EventPublisher
	exchange   string
	routingKey string
	interval   time.Duration
}

// NewPoller 创建轮询器，interval 为0时只支持手动触发
func NewPoller(svc *Service, source MessageSource, interval time.Duration) *Poller {
	return &Poller{svc: svc, source: source, interval: interval}
}

// ForwardTo 启用转发模式：拉取到的消息以持久化投递发布到队列，
// 去重与业务处理移交给队列消费者。
func (p *Poller) ForwardTo(queue EventPublisher, exchangeName, routingKey string) {
	p.queue = queue
	p.exchange = exchangeName
	p.routingKey = routingKey
}

// PollOnce 执行一轮拉取与处理，返回 (拉取数, 成功数, 失败数)。
// 处理（或转发）失败的消息不标记已读，留待下一轮重试。
func (p *Poller) PollOnce(ctx context.Context) (int, int, int, error) {
	messages, err := p.source.FetchUnread(ctx)
	if err != nil {
		return 0, 0, 0, err
	}

	processed := 0
	failed := 0
	for _, msg := range messages {
		if err := p.handle(ctx, msg); err != nil {
			failed++
			logger.Error().Err(err).Str("message_id", msg.ID).Msg("轮询消息处理失败")
			continue
		}
		processed++
		if err := p.source.MarkRead(ctx, msg.ID); err != nil {
			logger.Warn().Err(err).Str("message_id", msg.ID).Msg("标记已读失败")
		}
	}
	return len(messages), processed, failed, nil
}

func (p *Poller) handle(ctx context.Context, msg types.InboundMessage) error {
	if p.queue != nil {
		event := storage.InboundMessageEvent{
			MessageID:   msg.ID,
			Subject:     msg.Subject,
			Body:        msg.Body,
			SenderEmail: msg.SenderEmail,
			SenderName:  msg.SenderName,
			ReceivedAt:  msg.ReceivedAt,
		}
		return p.queue.PublishJSON(ctx, p.exchange, p.routingKey, event, true)
	}
	return p.svc.ProcessMessage(ctx, msg)
}

// Run 按固定间隔轮询，直到上下文取消。interval 为0时直接返回。
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		logger.Info().Msg("未配置轮询间隔，收件箱仅支持手动触发")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", p.interval).Msg("收件箱轮询已启动")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("收件箱轮询已停止")
			return
		case <-ticker.C:
			if fetched, _, failedCount, err := p.PollOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("收件箱拉取失败")
			} else if fetched > 0 {
				logger.Info().Int("fetched", fetched).Int("failed", failedCount).Msg("完成一轮收件箱处理")
			}
		}
	}
}
