// Package monitor периодически снимает метрики ресурсов хоста.
//
// Monitor по cron-расписанию (MONITOR_CRON, default "@every 30s")
// читает /proc/stat, /proc/meminfo и statfs корневого раздела
// и публикует MONITORING_METRICS_UPDATE широковещательно. Оркестратор
// сверяет значения с порогами и при превышении ставит RUNNING
// пайплайны на паузу.
package monitor
