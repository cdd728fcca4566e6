package status

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

// Store 状态汇总所需的持久化读取能力
type Store interface {
	ListEvaluationsByMeetID(ctx context.Context, meetID string) ([]models.EvaluationRecord, error)
	GetInterviewByID(ctx context.Context, interviewID string) (*models.Interview, error)
	GetClientByID(ctx context.Context, clientID string) (*models.Client, error)
	GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error)
}

// CVLinker 为候选人CV生成限时访问链接（对象存储）
type CVLinker interface {
	PresignedCVURL(ctx context.Context, cvRef string, expiry time.Duration) (string, error)
}

// MailTransport 报告投递所需的邮件传输能力
type MailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReportCache 渲染结果的缓存（Redis），可为空
type ReportCache interface {
	CacheStatusReport(ctx context.Context, interviewID, report string, ttl time.Duration) error
	GetCachedStatusReport(ctx context.Context, interviewID string) (string, error)
}

// Service 状态汇总：读取某面试的全部评估、按候选人分组排名并渲染报告
type Service struct {
	store Store
	links CVLinker
	mail  MailTransport
	cache ReportCache
}

// NewService 创建状态汇总服务。links/mail/cache 可为 nil，对应能力降级。
func NewService(store Store, links CVLinker, mail MailTransport, cache ReportCache) *Service {
	return &Service{store: store, links: links, mail: mail, cache: cache}
}

// BuildStatusOverview 汇总某面试的评估状态。
// 没有任何评估记录时返回 (nil, nil)，由调用方决定如何回应。
func (s *Service) BuildStatusOverview(ctx context.Context, interviewID string) (*types.StatusOverview, error) {
	records, err := s.store.ListEvaluationsByMeetID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	interview, err := s.store.GetInterviewByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	client, err := s.store.GetClientByID(ctx, interview.ClientID)
	if err != nil {
		return nil, err
	}

	// 按候选人分组，同一候选人保留首条记录，后续记录静默丢弃
	firstByCandidate := make(map[string]*models.EvaluationRecord)
	var candidateOrder []string
	for i := range records {
		record := &records[i]
		if _, ok := firstByCandidate[record.CandidateID]; ok {
			continue
		}
		firstByCandidate[record.CandidateID] = record
		candidateOrder = append(candidateOrder, record.CandidateID)
	}

	overviews := make([]types.CandidateOverview, 0, len(candidateOrder))
	for _, candidateID := range candidateOrder {
		candidate, err := s.store.GetCandidateByID(ctx, candidateID)
		if err != nil {
			return nil, err
		}
		overviews = append(overviews, s.buildCandidateOverview(ctx, candidate, firstByCandidate[candidateID]))
	}

	// 按兼容性分数降序；分数相同保持原始相对顺序
	sort.SliceStable(overviews, func(i, j int) bool {
		return overviews[i].CompatibilityScore > overviews[j].CompatibilityScore
	})

	ranking := make([]types.RankedCandidate, 0, constants.ReportRankingSize)
	for i, overview := range overviews {
		if i >= constants.ReportRankingSize {
			break
		}
		ranking = append(ranking, types.RankedCandidate{CandidateOverview: overview, Position: i + 1})
	}

	overview := &types.StatusOverview{
		InterviewID:     interview.InterviewID,
		InterviewName:   interview.Name,
		ClientName:      client.Name,
		ClientEmail:     client.Email,
		Responsible:     stringOrEmpty(client.Responsible),
		Phone:           stringOrEmpty(client.Phone),
		CandidatesCount: len(overviews),
		AvgScore:        averageCompatibility(overviews),
		Candidates:      overviews,
		Ranking:         ranking,
	}
	return overview, nil
}

// buildCandidateOverview 把候选人元数据与其评估记录拼接为单个视图。
// 字段缺失一律退化为零值，渲染层再以 N/A 呈现，绝不编造内容。
func (s *Service) buildCandidateOverview(ctx context.Context, candidate *models.Candidate, record *models.EvaluationRecord) types.CandidateOverview {
	match := gjson.ParseBytes(record.MatchEvaluationJSON)
	technical := gjson.ParseBytes(record.TechnicalAssessmentJSON)
	completeness := gjson.ParseBytes(record.CompletenessSummaryJSON)

	overview := types.CandidateOverview{
		CandidateID:          candidate.CandidateID,
		Name:                 candidate.Name,
		Email:                candidate.Email,
		Phone:                candidate.Phone,
		TechStack:            decodeStringSlice(candidate.TechStackJSON),
		CVURL:                s.cvLink(ctx, candidate.CVURL),
		CompatibilityScore:   int(match.Get("compatibility_score").Int()),
		Recommendation:       match.Get("final_recommendation").String(),
		KnowledgeLevel:       technical.Get("knowledge_level").String(),
		PracticalExperience:  technical.Get("practical_experience").String(),
		FullyAnswered:        int(completeness.Get("fully_answered").Int()),
		TotalQuestions:       int(completeness.Get("total_questions").Int()),
		Strengths:            resultToStrings(match.Get("strengths")),
		Concerns:             resultToStrings(match.Get("concerns")),
		Alerts:               decodeStringSlice(record.AlertsJSON),
		ConversationAnalysis: record.ConversationAnalysis,
	}
	return overview
}

// cvLink 为CV引用生成限时链接；对象存储不可用或出错时退回原始引用
func (s *Service) cvLink(ctx context.Context, cvRef string) string {
	if cvRef == "" {
		return ""
	}
	if s.links == nil {
		return cvRef
	}
	url, err := s.links.PresignedCVURL(ctx, cvRef, constants.CVLinkExpiry)
	if err != nil {
		logger.Warn().Err(err).Str("cv_ref", cvRef).Msg("生成CV链接失败，使用原始引用")
		return cvRef
	}
	return url
}

// averageCompatibility 全部保留候选人的平均兼容分，保留2位小数
func averageCompatibility(overviews []types.CandidateOverview) float64 {
	if len(overviews) == 0 {
		return 0.0
	}
	total := 0
	for _, o := range overviews {
		total += o.CompatibilityScore
	}
	return math.Round(float64(total)/float64(len(overviews))*100) / 100
}

func decodeStringSlice(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func resultToStrings(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
