package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// Strategy 单个字段提取策略，返回原始捕获与是否命中。
// 策略之间相互独立，由 FieldExtractor 按顺序级联。
type Strategy interface {
	Name() string
	Extract(text string) (string, bool)
}

// dashForm 短横线分隔形式: "Label: value -"
type dashForm struct {
	label string
	re    *regexp.Regexp
}

func newDashForm(label string) *dashForm {
	return &dashForm{
		label: label,
		re:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `:\s*([^-]+?)\s*-`),
	}
}

func (s *dashForm) Name() string { return "dash:" + s.label }

func (s *dashForm) Extract(text string) (string, bool) {
	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// lineForm 整行形式: "Label: value"，捕获到行尾
type lineForm struct {
	label string
	re    *regexp.Regexp
}

func newLineForm(label string) *lineForm {
	return &lineForm{
		label: label,
		re:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:=-]?\s*([^\n\r]+)`),
	}
}

func (s *lineForm) Name() string { return "line:" + s.label }

func (s *lineForm) Extract(text string) (string, bool) {
	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// phonePattern 通用电话形状兜底，在全文中查找，仅用于电话字段
type phonePattern struct {
	re *regexp.Regexp
}

func newPhonePattern() *phonePattern {
	return &phonePattern{
		re: regexp.MustCompile(`[+]?[(]?\d{1,4}[)]?(?:[-.\s]?\(?\d{1,4}\)?){1,5}`),
	}
}

func (s *phonePattern) Name() string { return "phone-generic" }

func (s *phonePattern) Extract(text string) (string, bool) {
	m := s.re.FindString(text)
	if m == "" {
		return "", false
	}
	return m, true
}

// 净化时仅保留单词字符（含重音字母）、空白、短横线与句点
var sanitizeRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.]`)

func sanitize(raw string) string {
	return strings.TrimSpace(sanitizeRe.ReplaceAllString(raw, ""))
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// FieldExtractor 针对单个字段的有序策略级联，第一个通过校验的结果获胜
type FieldExtractor struct {
	strategies []Strategy
	accept     func(string) bool
}

// Extract 依次尝试各策略，返回净化后的首个有效值；
// 全部失败时返回 nil，绝不猜测填充。
func (e *FieldExtractor) Extract(text string) *string {
	for _, s := range e.strategies {
		raw, ok := s.Extract(text)
		if !ok {
			continue
		}
		clean := sanitize(raw)
		if e.accept(clean) {
			return &clean
		}
	}
	return nil
}

// NewTextField 构造文本类字段提取器（客户名、负责人等）。
// 每个标签变体先尝试短横线形式再尝试整行形式，净化后长度需大于2。
func NewTextField(labels ...string) *FieldExtractor {
	e := &FieldExtractor{accept: func(v string) bool { return len(v) > 2 }}
	for _, l := range labels {
		e.strategies = append(e.strategies, newDashForm(l))
	}
	for _, l := range labels {
		e.strategies = append(e.strategies, newLineForm(l))
	}
	return e
}

// NewPhoneField 构造电话字段提取器，在标签形式之后追加通用电话形状兜底，
// 结果需包含至少7位数字。
func NewPhoneField(labels ...string) *FieldExtractor {
	e := &FieldExtractor{accept: func(v string) bool { return digitCount(v) >= 7 }}
	for _, l := range labels {
		e.strategies = append(e.strategies, newDashForm(l))
	}
	for _, l := range labels {
		e.strategies = append(e.strategies, newLineForm(l))
	}
	e.strategies = append(e.strategies, newPhonePattern())
	return e
}
