package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"hr-agent-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由。健康检查不设鉴权，其余接口走API密钥。
func RegisterRoutes(h *server.Hertz, apiKey string,
	intakeHandler *handler.IntakeHandler, evaluationHandler *handler.EvaluationHandler) {

	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	api.POST("/evaluation/result", evaluationHandler.HandleSaveEvaluation)
	api.GET("/evaluation/:interview_id", evaluationHandler.HandleGetEvaluation)
	api.POST("/intake/poll", intakeHandler.HandlePoll)
	api.GET("/interview/:interview_id/status", intakeHandler.HandleInterviewStatus)
	api.GET("/interview/:interview_id/report", intakeHandler.HandleInterviewReport)
}
