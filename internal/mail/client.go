package mail

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/types"
)

// Client 邮件源与传输协作方的HTTP客户端（Graph风格的JSON API）。
// 每类操作使用固定超时，本核心不做自动重试。
type Client struct {
	http *resty.Client
	cfg  config.MailConfig

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient 创建邮件客户端
func NewClient(cfg config.MailConfig) *Client {
	if cfg.TokenTimeoutSeconds <= 0 {
		cfg.TokenTimeoutSeconds = 10
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		cfg.FetchTimeoutSeconds = 15
	}
	if cfg.SendTimeoutSeconds <= 0 {
		cfg.SendTimeoutSeconds = 30
	}
	return &Client{
		http: resty.New(),
		cfg:  cfg,
	}
}

// acquireToken 获取访问令牌，带本地缓存；到期前60秒视为失效
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	tokenCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TokenTimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := c.http.R().
		SetContext(tokenCtx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"scope":         "https://graph.microsoft.com/.default",
		}).
		Post(c.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: 获取令牌失败: %v", types.ErrTransport, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: 令牌接口返回 %d", types.ErrTransport, resp.StatusCode())
	}

	token := gjson.Get(resp.String(), "access_token").String()
	if token == "" {
		return "", fmt.Errorf("%w: 令牌响应缺少 access_token", types.ErrTransport)
	}

	expiresIn := gjson.Get(resp.String(), "expires_in").Int()
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)
	return token, nil
}

// FetchUnread 拉取收件箱中的未读消息
func (c *Client) FetchUnread(ctx context.Context) ([]types.InboundMessage, error) {
	token, err := c.acquireToken(ctx)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/users/%s/messages", c.cfg.BaseURL, url.PathEscape(c.cfg.Mailbox))
	resp, err := c.http.R().
		SetContext(fetchCtx).
		SetAuthToken(token).
		SetQueryParam("$filter", "isRead eq false").
		SetQueryParam("$orderby", "receivedDateTime asc").
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: 拉取未读消息失败: %v", types.ErrTransport, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: 消息接口返回 %d", types.ErrTransport, resp.StatusCode())
	}

	var messages []types.InboundMessage
	for _, item := range gjson.Get(resp.String(), "value").Array() {
		received, _ := time.Parse(time.RFC3339, item.Get("receivedDateTime").String())
		body := item.Get("body.content").String()
		if body == "" {
			body = item.Get("bodyPreview").String()
		}
		messages = append(messages, types.InboundMessage{
			ID:          item.Get("id").String(),
			Subject:     item.Get("subject").String(),
			Body:        body,
			SenderEmail: item.Get("from.emailAddress.address").String(),
			SenderName:  item.Get("from.emailAddress.name").String(),
			ReceivedAt:  received,
		})
	}
	return messages, nil
}

// MarkRead 将消息标记为已读，避免下次轮询重复拉取
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	token, err := c.acquireToken(ctx)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/users/%s/messages/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Mailbox), url.PathEscape(messageID))
	resp, err := c.http.R().
		SetContext(fetchCtx).
		SetAuthToken(token).
		SetBody(map[string]interface{}{"isRead": true}).
		Patch(endpoint)
	if err != nil {
		return fmt.Errorf("%w: 标记已读失败: %v", types.ErrTransport, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: 标记已读接口返回 %d", types.ErrTransport, resp.StatusCode())
	}
	return nil
}

// Send 发送一封纯文本邮件，无投递回执跟踪
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	token, err := c.acquireToken(ctx)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.SendTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", c.cfg.BaseURL, url.PathEscape(c.cfg.Mailbox))
	resp, err := c.http.R().
		SetContext(sendCtx).
		SetAuthToken(token).
		SetBody(map[string]interface{}{
			"message": map[string]interface{}{
				"subject": subject,
				"body": map[string]interface{}{
					"contentType": "Text",
					"content":     body,
				},
				"toRecipients": []map[string]interface{}{
					{"emailAddress": map[string]string{"address": to}},
				},
			},
			"saveToSentItems": true,
		}).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("%w: 发送邮件失败: %v", types.ErrTransport, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: 发送接口返回 %d", types.ErrTransport, resp.StatusCode())
	}
	return nil
}
