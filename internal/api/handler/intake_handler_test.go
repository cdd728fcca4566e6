package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agent-go/internal/intake"
	"hr-agent-go/internal/status"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

type memClientStore struct {
	byEmail map[string]*models.Client
}

func (m *memClientStore) InsertClientIfAbsent(_ context.Context, client *models.Client) (string, bool, error) {
	if existing, ok := m.byEmail[client.Email]; ok {
		return existing.ClientID, false, nil
	}
	m.byEmail[client.Email] = client
	return client.ClientID, true, nil
}

type memInterviewStore struct {
	created []*models.Interview
}

func (m *memInterviewStore) CreateInterview(_ context.Context, interview *models.Interview) error {
	m.created = append(m.created, interview)
	return nil
}

type memStatusStore struct {
	records    []models.EvaluationRecord
	interviews map[string]*models.Interview
	clients    map[string]*models.Client
	candidates map[string]*models.Candidate
}

func (m *memStatusStore) ListEvaluationsByMeetID(_ context.Context, meetID string) ([]models.EvaluationRecord, error) {
	var out []models.EvaluationRecord
	for _, r := range m.records {
		if r.MeetID == meetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStatusStore) GetInterviewByID(_ context.Context, id string) (*models.Interview, error) {
	if iv, ok := m.interviews[id]; ok {
		return iv, nil
	}
	return nil, types.NewNotFoundError(types.ErrInterviewNotFound, "get_interview", id)
}

func (m *memStatusStore) GetClientByID(_ context.Context, id string) (*models.Client, error) {
	if c, ok := m.clients[id]; ok {
		return c, nil
	}
	return nil, types.NewNotFoundError(types.ErrClientNotFound, "get_client", id)
}

func (m *memStatusStore) GetCandidateByID(_ context.Context, id string) (*models.Candidate, error) {
	if c, ok := m.candidates[id]; ok {
		return c, nil
	}
	return nil, types.NewNotFoundError(types.ErrCandidateNotFound, "get_candidate", id)
}

type fakeFetcher struct {
	messages []types.InboundMessage
	fetchErr error
	marked   []string
}

func (f *fakeFetcher) FetchUnread(_ context.Context) ([]types.InboundMessage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.messages, nil
}

func (f *fakeFetcher) MarkRead(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func newIntakeEngine(source intake.MessageSource, statusStore *memStatusStore) (*route.Engine, *memInterviewStore) {
	interviews := &memInterviewStore{}
	resolver := intake.NewClientResolver(&memClientStore{byEmail: make(map[string]*models.Client)})
	intakeSvc := intake.NewService(intake.NewDedup(100), nil, resolver, interviews, nil, nil, nil)

	var poller *intake.Poller
	if source != nil {
		poller = intake.NewPoller(intakeSvc, source, 0)
	}

	var statusSvc *status.Service
	if statusStore != nil {
		statusSvc = status.NewService(statusStore, nil, nil, nil)
	}

	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	h := NewIntakeHandler(poller, statusSvc)
	engine.POST("/api/v1/intake/poll", h.HandlePoll)
	engine.GET("/api/v1/interview/:interview_id/status", h.HandleInterviewStatus)
	engine.GET("/api/v1/interview/:interview_id/report", h.HandleInterviewReport)
	return engine, interviews
}

func TestHandlePoll(t *testing.T) {
	source := &fakeFetcher{messages: []types.InboundMessage{
		{ID: "m1", Subject: "ReactJS-JD", Body: "Cliente: Acme Corp -", SenderEmail: "jobs@acme.com"},
		{ID: "m2", Subject: "sin clasificar", SenderEmail: "x@y.com"},
	}}
	engine, interviews := newIntakeEngine(source, nil)

	w := ut.PerformRequest(engine, "POST", "/api/v1/intake/poll", nil)
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.EqualValues(t, 2, out["fetched"])
	assert.EqualValues(t, 2, out["processed"])
	assert.EqualValues(t, 0, out["failed"])

	assert.Len(t, interviews.created, 1)
	assert.Equal(t, []string{"m1", "m2"}, source.marked)
}

func TestHandlePollNoSource(t *testing.T) {
	engine, _ := newIntakeEngine(nil, nil)
	w := ut.PerformRequest(engine, "POST", "/api/v1/intake/poll", nil)
	assert.Equal(t, 503, w.Result().StatusCode())
}

func TestHandlePollFetchError(t *testing.T) {
	engine, _ := newIntakeEngine(&fakeFetcher{fetchErr: errors.New("buzón inaccesible")}, nil)
	w := ut.PerformRequest(engine, "POST", "/api/v1/intake/poll", nil)
	assert.Equal(t, 502, w.Result().StatusCode())
}

func TestHandleInterviewStatus(t *testing.T) {
	interviewID := "123e4567-e89b-12d3-a456-426614174000"
	statusStore := &memStatusStore{
		interviews: map[string]*models.Interview{interviewID: {InterviewID: interviewID, Name: "ReactJS", ClientID: "cl-1"}},
		clients:    map[string]*models.Client{"cl-1": {ClientID: "cl-1", Name: "Acme", Email: "jobs@acme.com"}},
		candidates: map[string]*models.Candidate{"cand-1": {CandidateID: "cand-1", Name: "Ana"}},
		records: []models.EvaluationRecord{{
			MeetID:              interviewID,
			CandidateID:         "cand-1",
			MatchEvaluationJSON: []byte(`{"compatibility_score": 77}`),
		}},
	}
	engine, _ := newIntakeEngine(nil, statusStore)

	w := ut.PerformRequest(engine, "GET", "/api/v1/interview/"+interviewID+"/status?notify=false", nil)
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())

	var out types.StatusOverview
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.Equal(t, 1, out.CandidatesCount)
	assert.Equal(t, "Acme", out.ClientName)
}

func TestHandleInterviewStatusNoEvaluations(t *testing.T) {
	interviewID := "123e4567-e89b-12d3-a456-426614174000"
	statusStore := &memStatusStore{
		interviews: map[string]*models.Interview{interviewID: {InterviewID: interviewID, ClientID: "cl-1"}},
		clients:    map[string]*models.Client{"cl-1": {ClientID: "cl-1"}},
	}
	engine, _ := newIntakeEngine(nil, statusStore)

	w := ut.PerformRequest(engine, "GET", "/api/v1/interview/"+interviewID+"/status", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleInterviewReport(t *testing.T) {
	interviewID := "123e4567-e89b-12d3-a456-426614174000"
	statusStore := &memStatusStore{
		interviews: map[string]*models.Interview{interviewID: {InterviewID: interviewID, Name: "ReactJS", ClientID: "cl-1"}},
		clients:    map[string]*models.Client{"cl-1": {ClientID: "cl-1", Name: "Acme", Email: "jobs@acme.com"}},
		candidates: map[string]*models.Candidate{"cand-1": {CandidateID: "cand-1", Name: "Ana"}},
		records: []models.EvaluationRecord{{
			MeetID:              interviewID,
			CandidateID:         "cand-1",
			MatchEvaluationJSON: []byte(`{"compatibility_score": 77}`),
		}},
	}
	engine, _ := newIntakeEngine(nil, statusStore)

	w := ut.PerformRequest(engine, "GET", "/api/v1/interview/"+interviewID+"/report", nil)
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())

	body := string(resp.Body())
	assert.Contains(t, body, "=== ESTADO DE LA ENTREVISTA ===")
	assert.Contains(t, body, "Ana")
}

func TestHandleInterviewReportNoEvaluations(t *testing.T) {
	interviewID := "123e4567-e89b-12d3-a456-426614174000"
	statusStore := &memStatusStore{
		interviews: map[string]*models.Interview{interviewID: {InterviewID: interviewID, ClientID: "cl-1"}},
		clients:    map[string]*models.Client{"cl-1": {ClientID: "cl-1"}},
	}
	engine, _ := newIntakeEngine(nil, statusStore)

	w := ut.PerformRequest(engine, "GET", "/api/v1/interview/"+interviewID+"/report", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestHandleInterviewStatusInvalidID(t *testing.T) {
	engine, _ := newIntakeEngine(nil, nil)
	w := ut.PerformRequest(engine, "GET", "/api/v1/interview/no-uuid/status", nil)
	assert.Equal(t, 400, w.Result().StatusCode())
}
