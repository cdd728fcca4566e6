package evaluation

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

// Store 评估保存与读取所需的持久化能力
type Store interface {
	GetInterviewByID(ctx context.Context, interviewID string) (*models.Interview, error)
	UpsertEvaluationSummary(ctx context.Context, summary *models.EvaluationSummary) (string, error)
	FindSummaryByInterviewID(ctx context.Context, interviewID string) (*models.EvaluationSummary, error)
}

// Service 评估结果的规范化与幂等保存
type Service struct {
	store Store
}

// NewService 创建评估服务
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SaveEvaluation 规范化一次评估结果并按面试ID幂等保存，返回汇总行ID。
// 面试不存在或没有关联客户时以 NotFound 失败，绝不在无客户的情况下落库；
// 同一面试顺序调用两次只会留下一行，内容为后一次调用。
func (s *Service) SaveEvaluation(ctx context.Context, interviewID string,
	rawSummary, rawCandidates, rawRanking interface{}, candidatesCount *int) (string, error) {

	interview, err := s.store.GetInterviewByID(ctx, interviewID)
	if err != nil {
		return "", err
	}
	if interview.ClientID == "" {
		return "", types.NewNotFoundError(types.ErrClientNotFound, "save_evaluation", interviewID)
	}

	normalized, err := Normalize(rawSummary, rawCandidates, rawRanking, candidatesCount)
	if err != nil {
		return "", err
	}

	summaryJSON, err := models.MapToJSON(normalized.Summary)
	if err != nil {
		return "", types.NewInvalidShapeError("save_evaluation", "summary 无法序列化: "+err.Error())
	}
	candidatesJSON, err := models.SliceToJSON(normalized.Candidates)
	if err != nil {
		return "", types.NewInvalidShapeError("save_evaluation", "candidates 无法序列化: "+err.Error())
	}
	rankingJSON, err := models.SliceToJSON(normalized.Ranking)
	if err != nil {
		return "", types.NewInvalidShapeError("save_evaluation", "ranking 无法序列化: "+err.Error())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", types.NewPersistenceError("save_evaluation", interviewID, err)
	}

	row := &models.EvaluationSummary{
		SummaryID:       id.String(),
		ClientID:        interview.ClientID,
		JDInterviewID:   interviewID,
		SummaryJSON:     summaryJSON,
		CandidatesJSON:  candidatesJSON,
		RankingJSON:     rankingJSON,
		CandidatesCount: normalized.CandidatesCount,
	}

	summaryID, err := s.store.UpsertEvaluationSummary(ctx, row)
	if err != nil {
		return "", types.NewPersistenceError("save_evaluation", interviewID, err)
	}

	logger.Info().
		Str("summary_id", summaryID).
		Str("interview_id", interviewID).
		Int("candidates_count", normalized.CandidatesCount).
		Msg("评估汇总已保存")

	return summaryID, nil
}

// GetSummary 读取某面试已保存的评估汇总，不存在时返回 (nil, nil)
func (s *Service) GetSummary(ctx context.Context, interviewID string) (*models.EvaluationSummary, error) {
	return s.store.FindSummaryByInterviewID(ctx, interviewID)
}
