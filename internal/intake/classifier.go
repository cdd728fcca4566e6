package intake

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"hr-agent-go/internal/types"
)

var (
	jobRequestRe  = regexp.MustCompile(`(?i)^(.*)-jd$`)
	statusQueryRe = regexp.MustCompile(`^Status-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)
)

// Classify 按主题对入站消息分类。
// 以 -JD 结尾（不区分大小写）的主题是职位请求，-JD 前的最后一个词作为技术栈提示；
// 与 Status-<uuid> 严格相等（前缀大小写敏感、不容忍首尾空白）的主题是状态查询；
// 其余一律忽略。
func Classify(subject string) types.Classification {
	if m := statusQueryRe.FindStringSubmatch(subject); m != nil {
		id, err := uuid.Parse(m[1])
		if err == nil {
			return types.Classification{Kind: types.KindStatusQuery, StatusID: id.String()}
		}
	}

	trimmed := strings.TrimSpace(subject)
	if m := jobRequestRe.FindStringSubmatch(trimmed); m != nil {
		return types.Classification{Kind: types.KindJobRequest, TechHint: lastToken(m[1])}
	}

	return types.Classification{Kind: types.KindIgnored}
}

// lastToken 取空白分隔的最后一个词，用于技术栈提示
func lastToken(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
