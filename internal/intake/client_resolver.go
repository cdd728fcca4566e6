package intake

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"

	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/storage/models"
	"hr-agent-go/internal/types"
)

// ClientStore 客户解析所需的持久化能力
type ClientStore interface {
	InsertClientIfAbsent(ctx context.Context, client *models.Client) (string, bool, error)
}

// ClientResolver 按邮箱幂等查找或创建客户记录
type ClientResolver struct {
	store ClientStore
}

// NewClientResolver 创建客户解析器
func NewClientResolver(store ClientStore) *ClientResolver {
	return &ClientResolver{store: store}
}

// ResolveOrCreate 按邮箱解析客户，不存在时创建并返回新ID。
// 已存在的客户不会被本次请求中的 name/responsible/phone 更新（首写获胜）；
// 显示名缺失时退化为邮箱的本地部分。
func (r *ClientResolver) ResolveOrCreate(ctx context.Context, email, name string, responsible, phone *string) (string, error) {
	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = localPart(email)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", types.NewPersistenceError("resolve_client", email, err)
	}

	client := &models.Client{
		ClientID:    id.String(),
		Email:       email,
		Name:        displayName,
		Responsible: responsible,
		Phone:       phone,
	}

	clientID, created, err := r.store.InsertClientIfAbsent(ctx, client)
	if err != nil {
		return "", types.NewPersistenceError("resolve_client", email, err)
	}

	if created {
		logger.Info().
			Str("client_id", clientID).
			Str("email", email).
			Msg("客户首次出现，已创建记录")
	}

	return clientID, nil
}

// localPart 取邮箱 @ 前的本地部分
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
