package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agent-go/internal/evaluation"
	"hr-agent-go/internal/intake"
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
	failErr error
}

func (m *memInterviewStore) CreateInterview(_ context.Context, interview *models.Interview) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.created = append(m.created, interview)
	return nil
}

type memEvalStore struct {
	interviews map[string]*models.Interview
	byJD       map[string]*models.EvaluationSummary
}

func (m *memEvalStore) GetInterviewByID(_ context.Context, id string) (*models.Interview, error) {
	if iv, ok := m.interviews[id]; ok {
		return iv, nil
	}
	return nil, types.NewNotFoundError(types.ErrInterviewNotFound, "get_interview", id)
}

func (m *memEvalStore) UpsertEvaluationSummary(_ context.Context, s *models.EvaluationSummary) (string, error) {
	if existing, ok := m.byJD[s.JDInterviewID]; ok {
		*existing = *s
		return existing.SummaryID, nil
	}
	m.byJD[s.JDInterviewID] = s
	return s.SummaryID, nil
}

func (m *memEvalStore) FindSummaryByInterviewID(_ context.Context, interviewID string) (*models.EvaluationSummary, error) {
	if s, ok := m.byJD[interviewID]; ok {
		return s, nil
	}
	return nil, nil
}

func newIntakeService(interviews *memInterviewStore) *intake.Service {
	resolver := intake.NewClientResolver(&memClientStore{byEmail: make(map[string]*models.Client)})
	return intake.NewService(intake.NewDedup(100), nil, resolver, interviews, nil, nil, nil)
}

func TestIntakeHandlerProcessesJobRequest(t *testing.T) {
	interviews := &memInterviewStore{}
	handle := intakeHandler(newIntakeService(interviews))

	body, _ := json.Marshal(map[string]interface{}{
		"message_id":   "m1",
		"subject":      "ReactJS-JD",
		"body":         "Cliente: Acme Corp -",
		"sender_email": "jobs@acme.com",
	})
	assert.True(t, handle(body))
	assert.Len(t, interviews.created, 1)
}

func TestIntakeHandlerMalformedBodyAcked(t *testing.T) {
	handle := intakeHandler(newIntakeService(&memInterviewStore{}))
	// 形状错误是永久性的，ack丢弃而不是无限重试
	assert.True(t, handle([]byte("{roto")))
}

func TestIntakeHandlerPersistenceFailureRequeued(t *testing.T) {
	interviews := &memInterviewStore{failErr: assert.AnError}
	handle := intakeHandler(newIntakeService(interviews))

	body, _ := json.Marshal(map[string]interface{}{
		"message_id":   "m1",
		"subject":      "ReactJS-JD",
		"sender_email": "jobs@acme.com",
	})
	assert.False(t, handle(body))
}

func TestIntakeHandlerRedeliverySucceedsAfterRecovery(t *testing.T) {
	interviews := &memInterviewStore{failErr: assert.AnError}
	handle := intakeHandler(newIntakeService(interviews))

	body, _ := json.Marshal(map[string]interface{}{
		"message_id":   "m1",
		"subject":      "ReactJS-JD",
		"sender_email": "jobs@acme.com",
	})
	assert.False(t, handle(body))
	assert.Empty(t, interviews.created)

	// nack重新入队后的投递落在存储恢复之后，必须创建面试而不是被去重吞掉
	interviews.failErr = nil
	assert.True(t, handle(body))
	assert.Len(t, interviews.created, 1)
}

func TestEvaluationHandlerSaves(t *testing.T) {
	store := &memEvalStore{
		interviews: map[string]*models.Interview{"iv-1": {InterviewID: "iv-1", ClientID: "cl-1"}},
		byJD:       make(map[string]*models.EvaluationSummary),
	}
	handle := evaluationHandler(evaluation.NewService(store))

	body, _ := json.Marshal(map[string]interface{}{
		"interview_id": "iv-1",
		"candidates":   map[string]interface{}{"c1": map[string]interface{}{"name": "Ana", "score": "85"}},
	})
	assert.True(t, handle(body))
	require.Len(t, store.byJD, 1)
	assert.Equal(t, 1, store.byJD["iv-1"].CandidatesCount)
}

func TestEvaluationHandlerUnknownInterviewAcked(t *testing.T) {
	store := &memEvalStore{interviews: map[string]*models.Interview{}, byJD: make(map[string]*models.EvaluationSummary)}
	handle := evaluationHandler(evaluation.NewService(store))

	body, _ := json.Marshal(map[string]interface{}{"interview_id": "desconocida"})
	// NotFound 是数据完整性问题，重试无意义
	assert.True(t, handle(body))
}

func TestEvaluationHandlerMissingInterviewIDAcked(t *testing.T) {
	handle := evaluationHandler(evaluation.NewService(&memEvalStore{}))
	assert.True(t, handle([]byte(`{"summary": {}}`)))
}
