package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Pending vectorization sweep, every 5 minutes
	CronScheduleVectorizePending string `env:"CRON_SCHEDULE_VECTORIZE_PENDING" envDefault:"0 */5 * * * *"`
	// Embedding cache cleanup, hourly
	CronScheduleCacheCleanup string `env:"CRON_SCHEDULE_CACHE_CLEANUP" envDefault:"0 0 * * * *"`
}
