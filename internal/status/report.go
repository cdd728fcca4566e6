package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/types"
)

const reportCacheTTL = time.Hour

// BuildAndDispatch 构建状态报告并通过邮件投递给客户。
// 客户邮箱缺失时记录日志并放弃投递，绝不发送到猜测的地址；
// 没有评估记录时不发送任何内容。
func (s *Service) BuildAndDispatch(ctx context.Context, interviewID string) error {
	overview, err := s.BuildStatusOverview(ctx, interviewID)
	if err != nil {
		return err
	}
	if overview == nil {
		logger.Info().Str("interview_id", interviewID).Msg("该面试尚无评估记录，跳过报告投递")
		return nil
	}

	s.Dispatch(ctx, overview)
	return nil
}

// Report 返回某面试渲染后的报告文本，优先命中缓存。
// 未命中时重建并回填缓存；没有评估记录时返回空串。
func (s *Service) Report(ctx context.Context, interviewID string) (string, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCachedStatusReport(ctx, interviewID); err == nil && cached != "" {
			return cached, nil
		}
	}

	overview, err := s.BuildStatusOverview(ctx, interviewID)
	if err != nil {
		return "", err
	}
	if overview == nil {
		return "", nil
	}

	report := RenderReport(overview)
	if s.cache != nil {
		if err := s.cache.CacheStatusReport(ctx, interviewID, report, reportCacheTTL); err != nil {
			logger.Warn().Err(err).Str("interview_id", interviewID).Msg("缓存状态报告失败")
		}
	}
	return report, nil
}

// Dispatch 渲染并投递报告。投递属于传输层，失败只记录日志，
// 不影响调用方已完成的读取与汇总。
func (s *Service) Dispatch(ctx context.Context, overview *types.StatusOverview) {
	report := RenderReport(overview)

	if s.cache != nil {
		if err := s.cache.CacheStatusReport(ctx, overview.InterviewID, report, reportCacheTTL); err != nil {
			logger.Warn().Err(err).Str("interview_id", overview.InterviewID).Msg("缓存状态报告失败")
		}
	}

	if overview.ClientEmail == "" {
		logger.Error().
			Str("interview_id", overview.InterviewID).
			Str("client_name", overview.ClientName).
			Msg("客户记录缺少邮箱，放弃报告投递")
		return
	}

	if s.mail == nil {
		logger.Warn().Str("interview_id", overview.InterviewID).Msg("邮件传输未配置，报告未投递")
		return
	}

	subject := "Estado de la entrevista: " + overview.InterviewName
	if err := s.mail.Send(ctx, overview.ClientEmail, subject, report); err != nil {
		logger.Error().Err(err).
			Str("interview_id", overview.InterviewID).
			Str("to", overview.ClientEmail).
			Msg("状态报告发送失败")
		return
	}

	logger.Info().
		Str("interview_id", overview.InterviewID).
		Str("to", overview.ClientEmail).
		Int("candidates", overview.CandidatesCount).
		Msg("状态报告已投递")
}

// RenderReport 将状态汇总渲染为纯文本报告（部署地区语言）。
// 缺失字段以 N/A 呈现，不留空白段落。
func RenderReport(o *types.StatusOverview) string {
	var b strings.Builder

	b.WriteString("=== ESTADO DE LA ENTREVISTA ===\n")
	fmt.Fprintf(&b, "Entrevista: %s (%s)\n", orNA(o.InterviewName), o.InterviewID)
	fmt.Fprintf(&b, "Cliente: %s <%s>\n", orNA(o.ClientName), orNA(o.ClientEmail))
	fmt.Fprintf(&b, "Responsable: %s\n", orNA(o.Responsible))
	fmt.Fprintf(&b, "Teléfono: %s\n", orNA(o.Phone))
	fmt.Fprintf(&b, "Candidatos evaluados: %d\n", o.CandidatesCount)

	b.WriteString("\n--- INDICADORES ---\n")
	fmt.Fprintf(&b, "Puntaje promedio de compatibilidad: %.2f\n", o.AvgScore)
	fmt.Fprintf(&b, "Entrevistas completadas: %d\n", o.CandidatesCount)

	b.WriteString("\n--- CANDIDATOS ---\n")
	for _, c := range o.Candidates {
		writeCandidateBlock(&b, c)
	}

	b.WriteString("\n--- RANKING ---\n")
	for _, r := range o.Ranking {
		fmt.Fprintf(&b, "%s %s (%d puntos)\n", rankMarker(r.Position), orNA(r.Name), r.CompatibilityScore)
	}

	return b.String()
}

func writeCandidateBlock(b *strings.Builder, c types.CandidateOverview) {
	fmt.Fprintf(b, "\n%s %s (%d/100)\n", recommendationIcon(c.Recommendation), orNA(c.Name), c.CompatibilityScore)
	fmt.Fprintf(b, "  Recomendación: %s\n", orNA(c.Recommendation))
	fmt.Fprintf(b, "  Stack: %s\n", renderTechStack(c.TechStack))
	fmt.Fprintf(b, "  Nivel de conocimiento: %s\n", orNA(c.KnowledgeLevel))
	fmt.Fprintf(b, "  Experiencia práctica: %s\n", orNA(c.PracticalExperience))
	fmt.Fprintf(b, "  Completitud: %s\n", renderCompleteness(c.FullyAnswered, c.TotalQuestions))

	if len(c.Strengths) > 0 {
		fmt.Fprintf(b, "  Fortalezas: %s\n", strings.Join(truncate(c.Strengths, constants.ReportStrengthsMax), "; "))
	}
	if len(c.Concerns) > 0 {
		fmt.Fprintf(b, "  Puntos de atención: %s\n", strings.Join(truncate(c.Concerns, constants.ReportConcernsMax), "; "))
	}

	if c.CVURL != "" {
		fmt.Fprintf(b, "  CV: %s\n", c.CVURL)
	} else {
		b.WriteString("  CV no disponible\n")
	}

	for _, alert := range truncate(c.Alerts, constants.ReportAlertsMax) {
		fmt.Fprintf(b, "  ⚠ Alerta: %s\n", alert)
	}
}

// renderTechStack 最多列出前5项，其余以计数折叠
func renderTechStack(stack []string) string {
	if len(stack) == 0 {
		return "N/A"
	}
	if len(stack) <= constants.ReportTechStackMax {
		return strings.Join(stack, ", ")
	}
	shown := strings.Join(stack[:constants.ReportTechStackMax], ", ")
	return fmt.Sprintf("%s (+%d más)", shown, len(stack)-constants.ReportTechStackMax)
}

// renderCompleteness 回答完整度百分比，除零时呈现 N/A
func renderCompleteness(fullyAnswered, totalQuestions int) string {
	if totalQuestions == 0 {
		return "N/A"
	}
	pct := float64(fullyAnswered) / float64(totalQuestions) * 100
	return fmt.Sprintf("%.1f%% (%d/%d)", pct, fullyAnswered, totalQuestions)
}

// rankMarker 前三名用奖牌标记，其后用 #N
func rankMarker(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", position)
	}
}

// recommendationIcon 推荐结论的视觉标记
func recommendationIcon(recommendation string) string {
	lower := strings.ToLower(recommendation)
	switch {
	case strings.Contains(lower, "no recomendado"):
		return "❌"
	case strings.Contains(lower, "recomendado"):
		return "✅"
	default:
		return "⚠️"
	}
}

func truncate(values []string, max int) []string {
	if len(values) > max {
		return values[:max]
	}
	return values
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
