package intake

import (
	"context"
	"fmt"
	"strings"

	"hr-agent-go/internal/extractor"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"

	"github.com/gofrs/uuid/v5"
)

// InterviewStore 面试创建所需的持久化能力
type InterviewStore interface {
	CreateInterview(ctx context.Context, interview *models.Interview) error
}

// MailTransport 出站通知所需的邮件传输能力
type MailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// VoiceAgentProvisioner 语音坐席开通协作方。
// 开通失败对面试创建不致命，面试照常落库但不带坐席ID。
type VoiceAgentProvisioner interface {
	Provision(ctx context.Context, name, description string) (string, error)
}

// StatusReporter 状态查询路径的委托，由状态汇总模块实现
type StatusReporter interface {
	BuildAndDispatch(ctx context.Context, interviewID string) error
}

// DedupBackstop 跨实例去重兜底（Redis），可为空。
// 进程内FIFO缓存负责同实例内的竞态窗口，兜底负责多实例部署与重启场景。
type DedupBackstop interface {
	IsMessageProcessed(ctx context.Context, messageID string) (bool, error)
	MarkMessageProcessed(ctx context.Context, messageID string) error
}

// Service 入站消息处理服务：分类、去重、职位请求与状态查询两条路径
type Service struct {
	dedup      *Dedup
	backstop   DedupBackstop
	resolver   *ClientResolver
	interviews InterviewStore
	voice      VoiceAgentProvisioner
	mail       MailTransport
	status     StatusReporter
}

// NewService 创建入站处理服务。backstop/voice/mail/status 均可为 nil，
// 对应能力缺失时降级为仅记录日志。
func NewService(dedup *Dedup, backstop DedupBackstop, resolver *ClientResolver,
	interviews InterviewStore, voice VoiceAgentProvisioner, mail MailTransport, status StatusReporter) *Service {
	return &Service{
		dedup:      dedup,
		backstop:   backstop,
		resolver:   resolver,
		interviews: interviews,
		voice:      voice,
		mail:       mail,
		status:     status,
	}
}

// ProcessMessage 同步处理一条入站消息直至完成。
// 重复消息直接跳过且无副作用；分类为忽略的消息只记录日志。
func (s *Service) ProcessMessage(ctx context.Context, msg types.InboundMessage) error {
	if !s.dedup.ShouldProcess(msg.ID) {
		logger.Debug().Str("message_id", msg.ID).Msg("消息重复，跳过处理")
		return nil
	}

	if s.backstop != nil {
		seen, err := s.backstop.IsMessageProcessed(ctx, msg.ID)
		if err != nil {
			logger.Warn().Err(err).Str("message_id", msg.ID).Msg("查询去重兜底失败，继续处理")
		} else if seen {
			logger.Debug().Str("message_id", msg.ID).Msg("消息已在其他实例处理过，跳过")
			return nil
		}
	}

	classification := Classify(msg.Subject)

	var err error
	switch classification.Kind {
	case types.KindJobRequest:
		err = s.handleJobRequest(ctx, msg, classification)
	case types.KindStatusQuery:
		err = s.handleStatusQuery(ctx, msg, classification)
	default:
		logger.Debug().
			Str("message_id", msg.ID).
			Str("subject", msg.Subject).
			Msg("消息不属于任何已知类别，忽略")
	}

	if err != nil {
		// 登记先于处理只为关闭竞态窗口；失败后撤销登记，
		// 让队列重投递或下一轮轮询有机会重试这条消息
		s.dedup.Forget(msg.ID)
		return err
	}

	if s.backstop != nil {
		if markErr := s.backstop.MarkMessageProcessed(ctx, msg.ID); markErr != nil {
			logger.Warn().Err(markErr).Str("message_id", msg.ID).Msg("写入去重兜底失败")
		}
	}

	return nil
}

// handleJobRequest 职位请求路径：提取字段 → 解析客户 → 开通语音坐席 → 落库 → 通知
func (s *Service) handleJobRequest(ctx context.Context, msg types.InboundMessage, c types.Classification) error {
	senderEmail := extractor.CleanEmail(msg.SenderEmail)
	if senderEmail == "" {
		return types.NewInvalidShapeError("handle_job_request", "无法从发件人字段解析邮箱: "+msg.SenderEmail)
	}

	fields := extractor.ExtractJobRequestFields(msg.Body, c.TechHint)

	clientName := msg.SenderName
	if fields.ClientName != nil {
		clientName = *fields.ClientName
	}

	clientID, err := s.resolver.ResolveOrCreate(ctx, senderEmail, clientName, fields.Responsible, fields.Phone)
	if err != nil {
		return err
	}

	interviewName := interviewNameFromSubject(msg.Subject)
	description := buildInterviewDescription(fields, msg.Body)

	var voiceAgentID *string
	if s.voice != nil {
		agentID, provErr := s.voice.Provision(ctx, interviewName, description)
		if provErr != nil {
			// 开通失败不致命，面试照常创建
			logger.Warn().Err(provErr).Str("interview_name", interviewName).
				Msg("语音坐席开通失败，面试将不带坐席ID创建")
		} else {
			voiceAgentID = &agentID
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.NewPersistenceError("create_interview", interviewName, err)
	}

	interview := &models.Interview{
		InterviewID:  id.String(),
		Name:         interviewName,
		Description:  description,
		ClientID:     clientID,
		VoiceAgentID: voiceAgentID,
	}

	if err := s.interviews.CreateInterview(ctx, interview); err != nil {
		s.notify(ctx, senderEmail,
			"Error al crear la entrevista: "+interviewName,
			fmt.Sprintf("No se pudo registrar la entrevista \"%s\".\n\nMotivo: %v\n\nPor favor reenvíe la solicitud.", interviewName, err))
		return types.NewPersistenceError("create_interview", interview.InterviewID, err)
	}

	logger.Info().
		Str("interview_id", interview.InterviewID).
		Str("client_id", clientID).
		Str("message_id", msg.ID).
		Msg("面试记录已创建")

	s.notify(ctx, senderEmail,
		"Entrevista creada: "+interviewName,
		fmt.Sprintf("La entrevista \"%s\" fue registrada correctamente.\n\nIdentificador: %s\n\nPuede consultar el estado enviando un correo con asunto Status-%s.",
			interviewName, interview.InterviewID, interview.InterviewID))

	return nil
}

// handleStatusQuery 状态查询路径，报告构建与投递委托给状态汇总模块
func (s *Service) handleStatusQuery(ctx context.Context, msg types.InboundMessage, c types.Classification) error {
	if s.status == nil {
		logger.Warn().Str("message_id", msg.ID).Msg("状态汇总模块未配置，忽略状态查询")
		return nil
	}
	return s.status.BuildAndDispatch(ctx, c.StatusID)
}

// notify 发送通知邮件。投递失败只记录日志，绝不回滚已提交的持久化。
func (s *Service) notify(ctx context.Context, to, subject, body string) {
	if s.mail == nil {
		logger.Debug().Str("to", to).Str("subject", subject).Msg("邮件传输未配置，跳过通知")
		return
	}
	if err := s.mail.Send(ctx, to, subject, body); err != nil {
		logger.Error().Err(err).Str("to", to).Str("subject", subject).
			Msg("通知邮件发送失败")
	}
}

// interviewNameFromSubject 去掉主题末尾的 -JD 作为面试名
func interviewNameFromSubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if m := jobRequestRe.FindStringSubmatch(trimmed); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	return trimmed
}

// buildInterviewDescription 拼接描述：提取出的结构化字段在前，原始正文在后
func buildInterviewDescription(fields types.JobRequestFields, body string) string {
	var b strings.Builder
	if fields.Technology != nil {
		b.WriteString("Tecnología: " + *fields.Technology + "\n")
	}
	b.WriteString("Tipo de posición: " + fields.PositionType + "\n")
	if fields.ClientName != nil {
		b.WriteString("Cliente: " + *fields.ClientName + "\n")
	}
	if fields.Responsible != nil {
		b.WriteString("Responsable: " + *fields.Responsible + "\n")
	}
	if fields.Phone != nil {
		b.WriteString("Teléfono: " + *fields.Phone + "\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(body))
	return b.String()
}
