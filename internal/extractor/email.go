package extractor

import (
	"regexp"
	"strings"
)

var (
	angleEmailRe = regexp.MustCompile(`<([^<>@\s]+@[^<>\s]+)>`)
	bareEmailRe  = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
)

// CleanEmail 从 "Display Name <email>" 或裸字符串中提取邮箱地址。
// 优先取尖括号内的捕获；裸邮箱形状的片段仅在其覆盖整个输入、
// 或输入不含内嵌空格时才被接受，避免误取显示名中碰巧含 @ 的片段。
// 无法提取时返回空串。
func CleanEmail(raw string) string {
	s := strings.TrimSpace(raw)
	if m := angleEmailRe.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}
	if m := bareEmailRe.FindString(s); m != "" {
		if m == s || !strings.Contains(s, " ") {
			return strings.ToLower(m)
		}
	}
	return ""
}
