package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"hr-agent-go/internal/evaluation"
	"hr-agent-go/internal/types"
)

// EvaluationHandler 处理分析协作方提交的评估结果
type EvaluationHandler struct {
	svc *evaluation.Service
}

// NewEvaluationHandler 创建评估结果处理器
func NewEvaluationHandler(svc *evaluation.Service) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

// saveEvaluationRequest 评估结果提交体。
// summary/candidates/ranking 接受对象或JSON字符串，由规范化器统一解析。
type saveEvaluationRequest struct {
	InterviewID     string          `json:"interview_id"`
	Summary         json.RawMessage `json:"summary"`
	Candidates      json.RawMessage `json:"candidates"`
	Ranking         json.RawMessage `json:"ranking"`
	CandidatesCount *int            `json:"candidates_count"`
}

// HandleSaveEvaluation 规范化并保存一次评估结果。
// POST /api/v1/evaluation/result
func (h *EvaluationHandler) HandleSaveEvaluation(ctx context.Context, c *app.RequestContext) {
	var req saveEvaluationRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法JSON"})
		return
	}
	if req.InterviewID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "interview_id 不能为空"})
		return
	}

	summaryID, err := h.svc.SaveEvaluation(ctx, req.InterviewID,
		req.Summary, req.Candidates, req.Ranking, req.CandidatesCount)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInterviewNotFound), errors.Is(err, types.ErrClientNotFound):
			c.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
		case errors.Is(err, types.ErrInvalidShape):
			c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		default:
			c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		}
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"summary_id":   summaryID,
		"interview_id": req.InterviewID,
	})
}

// HandleGetEvaluation 读取某面试已保存的评估汇总。
// GET /api/v1/evaluation/:interview_id
func (h *EvaluationHandler) HandleGetEvaluation(ctx context.Context, c *app.RequestContext) {
	interviewID := c.Param("interview_id")

	summary, err := h.svc.GetSummary(ctx, interviewID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	if summary == nil {
		c.JSON(consts.StatusNotFound, utils.H{
			"interview_id": interviewID,
			"message":      "该面试尚无评估汇总",
		})
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"summary_id":       summary.SummaryID,
		"interview_id":     summary.JDInterviewID,
		"client_id":        summary.ClientID,
		"summary":          json.RawMessage(summary.SummaryJSON),
		"candidates":       json.RawMessage(summary.CandidatesJSON),
		"ranking":          json.RawMessage(summary.RankingJSON),
		"candidates_count": summary.CandidatesCount,
	})
}
