package voiceagent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/types"
)

// Client 语音坐席开通协作方的HTTP客户端。
// 开通失败由调用方决定降级策略，这里只负责如实上报。
type Client struct {
	http *resty.Client
	cfg  config.VoiceAgentConfig
}

// NewClient 创建语音坐席客户端
func NewClient(cfg config.VoiceAgentConfig) *Client {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &Client{
		http: resty.New().SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		cfg:  cfg,
	}
}

// Provision 为一场面试开通语音坐席，返回不透明的坐席ID
func (c *Client) Provision(ctx context.Context, name, description string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.cfg.APIKey).
		SetBody(map[string]interface{}{
			"name":        name,
			"description": description,
		}).
		Post(c.cfg.BaseURL + "/agents")
	if err != nil {
		return "", fmt.Errorf("%w: 开通语音坐席失败: %v", types.ErrTransport, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: 语音坐席接口返回 %d", types.ErrTransport, resp.StatusCode())
	}

	agentID := gjson.Get(resp.String(), "agent_id").String()
	if agentID == "" {
		agentID = gjson.Get(resp.String(), "id").String()
	}
	if agentID == "" {
		return "", fmt.Errorf("%w: 响应缺少坐席ID", types.ErrTransport)
	}
	return agentID, nil
}
