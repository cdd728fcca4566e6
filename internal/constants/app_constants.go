package constants

import "time"

const (
	// DefaultPositionType 职位类型提取失败时的默认值
	DefaultPositionType = "Desarrollador"
	// DefaultRecommendation 候选人推荐字段缺失或非法时的默认值
	DefaultRecommendation = "Condicional"

	// 匹配等级标签（按部署地区语言）
	MatchLevelExcellent = "EXCELENTE"
	MatchLevelGood      = "BUENO"
	MatchLevelModerate  = "MODERADO"
	MatchLevelWeak      = "DÉBIL"

	// 匹配等级分数阈值
	ScoreThresholdExcellent = 80
	ScoreThresholdGood      = 70
	ScoreThresholdModerate  = 60

	// DedupCapacity 进程内消息去重缓存的默认容量（FIFO，超出后淘汰最旧条目）
	DedupCapacity = 1000

	// 状态报告渲染限制
	ReportRankingSize  = 5
	ReportTechStackMax = 5
	ReportStrengthsMax = 3
	ReportConcernsMax  = 2
	ReportAlertsMax    = 3
	RankingStrengthMax = 4

	// CVLinkExpiry 报告中CV预签名链接的有效期
	CVLinkExpiry = 7 * 24 * time.Hour

	// DedupRecordExpire Redis去重兜底记录的过期时间
	DedupRecordExpire = 30 * 24 * time.Hour
)
