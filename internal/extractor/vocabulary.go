package extractor

import (
	"strings"

	"hr-agent-go/internal/constants"
)

// vocabEntry 词表条目：小写匹配关键词 → 规范显示名
type vocabEntry struct {
	keyword   string
	canonical string
}

// 技术栈词表，按优先级排列；存在子串包含关系的词（javascript/java）长词在前
var technologyVocabulary = []vocabEntry{
	{"react native", "React Native"},
	{"reactjs", "ReactJS"},
	{"react", "React"},
	{"angular", "Angular"},
	{"vue", "Vue"},
	{"typescript", "TypeScript"},
	{"javascript", "JavaScript"},
	{"nodejs", "NodeJS"},
	{"node", "NodeJS"},
	{"python", "Python"},
	{"golang", "Go"},
	{"java", "Java"},
	{"kotlin", "Kotlin"},
	{"swift", "Swift"},
	{"flutter", "Flutter"},
	{"laravel", "Laravel"},
	{"php", "PHP"},
	{"ruby", "Ruby"},
	{".net", ".NET"},
	{"c#", "C#"},
	{"sql", "SQL"},
	{"aws", "AWS"},
	{"devops", "DevOps"},
}

// DetectTechnology 在文本中做大小写不敏感的子串匹配，首个命中获胜；
// 无命中返回 nil，由调用方决定兜底。
func DetectTechnology(text string) *string {
	lower := strings.ToLower(text)
	for _, entry := range technologyVocabulary {
		if strings.Contains(lower, entry.keyword) {
			canonical := entry.canonical
			return &canonical
		}
	}
	return nil
}

// 职位类型词表
var positionVocabulary = []vocabEntry{
	{"full stack", "Fullstack"},
	{"fullstack", "Fullstack"},
	{"front end", "Frontend"},
	{"frontend", "Frontend"},
	{"back end", "Backend"},
	{"backend", "Backend"},
	{"devops", "DevOps"},
	{"mobile", "Mobile"},
	{"tester", "QA"},
	{"qa", "QA"},
	{"arquitecto", "Arquitecto"},
}

// DetectPositionType 识别职位类型，无命中时返回默认值
func DetectPositionType(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range positionVocabulary {
		if strings.Contains(lower, entry.keyword) {
			return entry.canonical
		}
	}
	return constants.DefaultPositionType
}
