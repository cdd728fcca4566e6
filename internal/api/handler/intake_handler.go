package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"hr-agent-go/internal/intake"
	"hr-agent-go/internal/status"
	"hr-agent-go/internal/types"
)

// IntakeHandler 处理收件箱轮询触发与面试状态查询
type IntakeHandler struct {
	poller *intake.Poller
	status *status.Service
}

// NewIntakeHandler 创建接收处理器。poller 可为 nil（未配置邮件源时）。
func NewIntakeHandler(poller *intake.Poller, statusSvc *status.Service) *IntakeHandler {
	return &IntakeHandler{poller: poller, status: statusSvc}
}

// HandlePoll 手动触发一轮收件箱轮询，逐条同步处理。
// POST /api/v1/intake/poll
func (h *IntakeHandler) HandlePoll(ctx context.Context, c *app.RequestContext) {
	if h.poller == nil {
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "邮件源未配置"})
		return
	}

	fetched, processed, failed, err := h.poller.PollOnce(ctx)
	if err != nil {
		c.JSON(consts.StatusBadGateway, utils.H{"error": err.Error()})
		return
	}

	c.JSON(consts.StatusOK, utils.H{
		"fetched":   fetched,
		"processed": processed,
		"failed":    failed,
	})
}

// HandleInterviewStatus 构建面试状态汇总，返回JSON并向客户投递报告。
// notify=false 时只查询不投递。
// GET /api/v1/interview/:interview_id/status
func (h *IntakeHandler) HandleInterviewStatus(ctx context.Context, c *app.RequestContext) {
	interviewID := c.Param("interview_id")
	if _, err := uuid.Parse(interviewID); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "interview_id 必须是UUID"})
		return
	}

	overview, err := h.status.BuildStatusOverview(ctx, interviewID)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInterviewNotFound),
			errors.Is(err, types.ErrClientNotFound),
			errors.Is(err, types.ErrCandidateNotFound):
			c.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
		default:
			c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		}
		return
	}
	if overview == nil {
		c.JSON(consts.StatusNotFound, utils.H{
			"interview_id": interviewID,
			"message":      "该面试尚无评估记录",
		})
		return
	}

	if c.Query("notify") != "false" {
		h.status.Dispatch(ctx, overview)
	}

	c.JSON(consts.StatusOK, overview)
}

// HandleInterviewReport 返回渲染后的状态报告文本，优先命中缓存，不投递邮件。
// GET /api/v1/interview/:interview_id/report
func (h *IntakeHandler) HandleInterviewReport(ctx context.Context, c *app.RequestContext) {
	interviewID := c.Param("interview_id")
	if _, err := uuid.Parse(interviewID); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "interview_id 必须是UUID"})
		return
	}

	report, err := h.status.Report(ctx, interviewID)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInterviewNotFound),
			errors.Is(err, types.ErrClientNotFound),
			errors.Is(err, types.ErrCandidateNotFound):
			c.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
		default:
			c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		}
		return
	}
	if report == "" {
		c.JSON(consts.StatusNotFound, utils.H{
			"interview_id": interviewID,
			"message":      "该面试尚无评估记录",
		})
		return
	}

	c.Data(consts.StatusOK, "text/plain; charset=utf-8", []byte(report))
}
