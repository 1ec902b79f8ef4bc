// Package retention prunes validation history by age and by record count,
// on demand or on a cron schedule (github.com/robfig/cron/v3).
package retention
