package status

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

type fakeStore struct {
	records    []models.EvaluationRecord
	interviews map[string]*models.Interview
	clients    map[string]*models.Client
	candidates map[string]*models.Candidate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		interviews: make(map[string]*models.Interview),
		clients:    make(map[string]*models.Client),
		candidates: make(map[string]*models.Candidate),
	}
}

func (f *fakeStore) ListEvaluationsByMeetID(_ context.Context, meetID string) ([]models.EvaluationRecord, error) {
	var out []models.EvaluationRecord
	for _, r := range f.records {
		if r.MeetID == meetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetInterviewByID(_ context.Context, id string) (*models.Interview, error) {
	if iv, ok := f.interviews[id]; ok {
		return iv, nil
	}
	return nil, types.NewNotFoundError(types.ErrInterviewNotFound, "get_interview", id)
}

func (f *fakeStore) GetClientByID(_ context.Context, id string) (*models.Client, error) {
	if c, ok := f.clients[id]; ok {
		return c, nil
	}
	return nil, types.NewNotFoundError(types.ErrClientNotFound, "get_client", id)
}

func (f *fakeStore) GetCandidateByID(_ context.Context, id string) (*models.Candidate, error) {
	if c, ok := f.candidates[id]; ok {
		return c, nil
	}
	return nil, types.NewNotFoundError(types.ErrCandidateNotFound, "get_candidate", id)
}

type fakeMail struct {
	sent []struct{ to, subject, body string }
}

func (f *fakeMail) Send(_ context.Context, to, subject, body string) error {
	f.sent = append(f.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func matchJSON(score int) datatypes.JSON {
	return datatypes.JSON(fmt.Sprintf(
		`{"compatibility_score": %d, "final_recommendation": "Recomendado", "strengths": ["SQL"], "concerns": ["Poca experiencia"]}`, score))
}

func seedInterview(store *fakeStore, scores []int) {
	store.interviews["iv-1"] = &models.Interview{InterviewID: "iv-1", Name: "ReactJS", ClientID: "cl-1"}
	responsible := "Juan"
	store.clients["cl-1"] = &models.Client{ClientID: "cl-1", Name: "Acme", Email: "jobs@acme.com", Responsible: &responsible}

	for i, score := range scores {
		candidateID := fmt.Sprintf("cand-%d", i)
		store.candidates[candidateID] = &models.Candidate{
			CandidateID: candidateID,
			Name:        fmt.Sprintf("Candidato %d", i),
			Email:       fmt.Sprintf("c%d@mail.com", i),
		}
		store.records = append(store.records, models.EvaluationRecord{
			MeetID:              "iv-1",
			CandidateID:         candidateID,
			MatchEvaluationJSON: matchJSON(score),
		})
	}
}

func TestBuildStatusOverviewRanking(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{90, 70, 85, 40, 60, 30})
	svc := NewService(store, nil, nil, nil)

	overview, err := svc.BuildStatusOverview(context.Background(), "iv-1")
	require.NoError(t, err)
	require.NotNil(t, overview)

	assert.Equal(t, 6, overview.CandidatesCount)

	require.Len(t, overview.Ranking, 5)
	var rankedScores []int
	for i, r := range overview.Ranking {
		assert.Equal(t, i+1, r.Position)
		rankedScores = append(rankedScores, r.CompatibilityScore)
	}
	assert.Equal(t, []int{90, 85, 70, 60, 40}, rankedScores)

	// 平均分覆盖全部6名候选人，不只是前5名
	assert.InDelta(t, 62.5, overview.AvgScore, 0.001)
}

func TestBuildStatusOverviewEmpty(t *testing.T) {
	store := newFakeStore()
	store.interviews["iv-1"] = &models.Interview{InterviewID: "iv-1", ClientID: "cl-1"}
	svc := NewService(store, nil, nil, nil)

	overview, err := svc.BuildStatusOverview(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Nil(t, overview)
}

func TestBuildStatusOverviewFirstRecordWins(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{50})
	// 同一候选人的第二条记录被静默丢弃
	store.records = append(store.records, models.EvaluationRecord{
		MeetID:              "iv-1",
		CandidateID:         "cand-0",
		MatchEvaluationJSON: matchJSON(99),
	})
	svc := NewService(store, nil, nil, nil)

	overview, err := svc.BuildStatusOverview(context.Background(), "iv-1")
	require.NoError(t, err)
	require.NotNil(t, overview)

	assert.Equal(t, 1, overview.CandidatesCount)
	assert.Equal(t, 50, overview.Candidates[0].CompatibilityScore)
}

func TestBuildStatusOverviewMissingCandidateFatal(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{70})
	delete(store.candidates, "cand-0")
	svc := NewService(store, nil, nil, nil)

	_, err := svc.BuildStatusOverview(context.Background(), "iv-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCandidateNotFound)
}

type fakeReportCache struct {
	reports map[string]string
	gets    int
	puts    int
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{reports: make(map[string]string)}
}

func (f *fakeReportCache) CacheStatusReport(_ context.Context, interviewID, report string, _ time.Duration) error {
	f.puts++
	f.reports[interviewID] = report
	return nil
}

func (f *fakeReportCache) GetCachedStatusReport(_ context.Context, interviewID string) (string, error) {
	f.gets++
	if report, ok := f.reports[interviewID]; ok {
		return report, nil
	}
	return "", errors.New("clave no encontrada")
}

func TestReportRebuildsOnCacheMissAndBackfills(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{80, 60})
	cache := newFakeReportCache()
	svc := NewService(store, nil, nil, cache)

	report, err := svc.Report(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Contains(t, report, "Candidatos evaluados: 2")
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, report, cache.reports["iv-1"])
}

func TestReportServedFromCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeReportCache()
	cache.reports["iv-1"] = "=== ESTADO DE LA ENTREVISTA ===\ncacheado"
	// 缓存命中时完全不触碰存储：fakeStore为空，重建必然失败返回空
	svc := NewService(store, nil, nil, cache)

	report, err := svc.Report(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Contains(t, report, "cacheado")
	assert.Equal(t, 1, cache.gets)
	assert.Zero(t, cache.puts)
}

func TestReportNoEvaluationsEmpty(t *testing.T) {
	store := newFakeStore()
	store.interviews["iv-1"] = &models.Interview{InterviewID: "iv-1", ClientID: "cl-1"}
	svc := NewService(store, nil, nil, nil)

	report, err := svc.Report(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestBuildAndDispatchSendsReport(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{80, 60})
	mail := &fakeMail{}
	svc := NewService(store, nil, mail, nil)

	require.NoError(t, svc.BuildAndDispatch(context.Background(), "iv-1"))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "jobs@acme.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].subject, "ReactJS")
	assert.Contains(t, mail.sent[0].body, "Candidatos evaluados: 2")
}

func TestBuildAndDispatchAbortsWithoutClientEmail(t *testing.T) {
	store := newFakeStore()
	seedInterview(store, []int{80})
	store.clients["cl-1"].Email = ""
	mail := &fakeMail{}
	svc := NewService(store, nil, mail, nil)

	// 邮箱缺失时放弃投递，绝不发送到猜测的地址
	require.NoError(t, svc.BuildAndDispatch(context.Background(), "iv-1"))
	assert.Empty(t, mail.sent)
}

func TestBuildAndDispatchNoEvaluationsNoMail(t *testing.T) {
	store := newFakeStore()
	store.interviews["iv-1"] = &models.Interview{InterviewID: "iv-1", ClientID: "cl-1"}
	mail := &fakeMail{}
	svc := NewService(store, nil, mail, nil)

	require.NoError(t, svc.BuildAndDispatch(context.Background(), "iv-1"))
	assert.Empty(t, mail.sent)
}
