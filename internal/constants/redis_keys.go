package constants

// Redis Key 前缀和格式常量
// 统一命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// IntakeModulePrefix 消息接收模块
	IntakeModulePrefix = "intake"
	// StatusModulePrefix 状态汇总模块
	StatusModulePrefix = "status"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityReport 报告实体
	EntityReport = "report"

	// KeyProcessedMessageSet 已处理消息ID集合，跨实例去重兜底 (SET)
	// 格式: app:intake:dedup_set
	KeyProcessedMessageSet = AppPrefix + ":" + IntakeModulePrefix + ":" + EntityDedupSet

	// KeyStatusReport 渲染后的状态报告缓存 (STRING)
	// 格式: app:status:report:{interviewID}
	KeyStatusReport = AppPrefix + ":" + StatusModulePrefix + ":" + EntityReport + ":%s"
)
