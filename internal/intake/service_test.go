package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

type fakeInterviewStore struct {
	created []*models.Interview
	failErr error
}

func (f *fakeInterviewStore) CreateInterview(_ context.Context, interview *models.Interview) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.created = append(f.created, interview)
	return nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMail struct {
	sent    []sentMail
	failErr error
}

func (f *fakeMail) Send(_ context.Context, to, subject, body string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeVoice struct {
	agentID string
	failErr error
	calls   int
}

func (f *fakeVoice) Provision(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.failErr != nil {
		return "", f.failErr
	}
	return f.agentID, nil
}

type fakeStatusReporter struct {
	dispatched []string
}

func (f *fakeStatusReporter) BuildAndDispatch(_ context.Context, interviewID string) error {
	f.dispatched = append(f.dispatched, interviewID)
	return nil
}

func newTestService(interviews *fakeInterviewStore, voice *fakeVoice, mail *fakeMail, status *fakeStatusReporter) *Service {
	var v VoiceAgentProvisioner
	if voice != nil {
		v = voice
	}
	var m MailTransport
	if mail != nil {
		m = mail
	}
	var st StatusReporter
	if status != nil {
		st = status
	}
	return NewService(NewDedup(100), nil, NewClientResolver(newFakeClientStore()), interviews, v, m, st)
}

func jobRequestMsg(id string) types.InboundMessage {
	return types.InboundMessage{
		ID:          id,
		Subject:     "ReactJS-JD",
		Body:        "Cliente: Acme Corp - Responsable: Juan Gómez - Teléfono: 5512345678 -",
		SenderEmail: "Reclutador <jobs@acme.com>",
		SenderName:  "Reclutador",
	}
}

func TestProcessMessageJobRequest(t *testing.T) {
	interviews := &fakeInterviewStore{}
	voice := &fakeVoice{agentID: "agent-77"}
	mail := &fakeMail{}
	svc := newTestService(interviews, voice, mail, nil)

	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))

	require.Len(t, interviews.created, 1)
	created := interviews.created[0]
	assert.Equal(t, "ReactJS", created.Name)
	assert.NotEmpty(t, created.InterviewID)
	assert.NotEmpty(t, created.ClientID)
	require.NotNil(t, created.VoiceAgentID)
	assert.Equal(t, "agent-77", *created.VoiceAgentID)
	assert.Contains(t, created.Description, "Tecnología: ReactJS")

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "jobs@acme.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].subject, "Entrevista creada")
	assert.Contains(t, mail.sent[0].body, created.InterviewID)
}

func TestProcessMessageDuplicateSkipped(t *testing.T) {
	interviews := &fakeInterviewStore{}
	svc := newTestService(interviews, nil, nil, nil)

	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))
	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))

	// 第二次投递无任何副作用
	assert.Len(t, interviews.created, 1)
}

func TestProcessMessageVoiceFailureNonFatal(t *testing.T) {
	interviews := &fakeInterviewStore{}
	voice := &fakeVoice{failErr: errors.New("servicio no disponible")}
	svc := newTestService(interviews, voice, nil, nil)

	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))

	require.Len(t, interviews.created, 1)
	assert.Nil(t, interviews.created[0].VoiceAgentID)
}

func TestProcessMessagePersistenceFailureNotifiesError(t *testing.T) {
	interviews := &fakeInterviewStore{failErr: errors.New("conexión rechazada")}
	mail := &fakeMail{}
	svc := newTestService(interviews, nil, mail, nil)

	err := svc.ProcessMessage(context.Background(), jobRequestMsg("m1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPersistence)

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].subject, "Error al crear la entrevista")
}

func TestProcessMessageRetryAfterPersistenceFailure(t *testing.T) {
	interviews := &fakeInterviewStore{failErr: errors.New("conexión rechazada")}
	svc := newTestService(interviews, nil, nil, nil)

	err := svc.ProcessMessage(context.Background(), jobRequestMsg("m1"))
	require.ErrorIs(t, err, types.ErrPersistence)
	assert.Empty(t, interviews.created)

	// 存储恢复后同一ID的重投递必须能补上失败的处理，而不是被当作重复吞掉
	interviews.failErr = nil
	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))
	assert.Len(t, interviews.created, 1)
}

func TestProcessMessageMailFailureDoesNotRollback(t *testing.T) {
	interviews := &fakeInterviewStore{}
	mail := &fakeMail{failErr: errors.New("transporte caído")}
	svc := newTestService(interviews, nil, mail, nil)

	// 通知失败不影响已提交的面试记录，也不让整体处理失败
	require.NoError(t, svc.ProcessMessage(context.Background(), jobRequestMsg("m1")))
	assert.Len(t, interviews.created, 1)
}

func TestProcessMessageStatusQuery(t *testing.T) {
	status := &fakeStatusReporter{}
	svc := newTestService(&fakeInterviewStore{}, nil, nil, status)

	msg := types.InboundMessage{
		ID:          "m2",
		Subject:     "Status-123e4567-e89b-12d3-a456-426614174000",
		SenderEmail: "jobs@acme.com",
	}
	require.NoError(t, svc.ProcessMessage(context.Background(), msg))
	assert.Equal(t, []string{"123e4567-e89b-12d3-a456-426614174000"}, status.dispatched)
}

func TestProcessMessageIgnored(t *testing.T) {
	interviews := &fakeInterviewStore{}
	status := &fakeStatusReporter{}
	svc := newTestService(interviews, nil, nil, status)

	msg := types.InboundMessage{ID: "m3", Subject: "Python Developer", SenderEmail: "x@y.com"}
	require.NoError(t, svc.ProcessMessage(context.Background(), msg))
	assert.Empty(t, interviews.created)
	assert.Empty(t, status.dispatched)
}

func TestProcessMessageInvalidSender(t *testing.T) {
	svc := newTestService(&fakeInterviewStore{}, nil, nil, nil)

	msg := jobRequestMsg("m4")
	msg.SenderEmail = "remitente sin correo válido"
	err := svc.ProcessMessage(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidShape)
}
