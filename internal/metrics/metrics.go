package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ReportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reports_submitted_total",
	Help: "Number of reports accepted for review",
}, []string{"report_type"})

var ReportsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reports_denied_total",
	Help: "Number of report submissions denied by eligibility checks",
}, []string{"reason_code"})

var ReportsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reports_decided_total",
	Help: "Number of admin decisions on reports",
}, []string{"status"})

var FalseReports = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_false_reports_total",
	Help: "Number of reports flagged as false",
})

var BansApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_bans_applied_total",
	Help: "Number of bans applied or lifted on reporters",
}, []string{"kind"})

var TargetResolutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_target_resolution_failures_total",
	Help: "Number of report targets that could not be resolved while listing",
}, []string{"report_type"})

var NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_notifications_total",
	Help: "Notification dispatch outcomes",
}, []string{"status"})

var ContentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_content_cache_hits_total",
	Help: "Number of content resolver cache hits",
})

var ContentCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_content_cache_misses_total",
	Help: "Number of content resolver cache misses",
})
