package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobRegistryFullSync = "registry.full_sync"
	JobStatsRefresh     = "stats.refresh"
)

// Cron 表达式常量；对账周期由 registry.cron 配置覆盖.
const (
	CronStatsRefresh = "*/5 * * * *"
)
