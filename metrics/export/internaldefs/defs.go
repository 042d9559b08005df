package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions created."},
	{ID: goSession.MetricSessionEvicted, Name: "gosession_session_evicted_total", Help: "Same-platform sessions displaced by a new login."},
	{ID: goSession.MetricSessionDeleted, Name: "gosession_session_deleted_total", Help: "Single-session logouts that removed a record."},
	{ID: goSession.MetricSessionsDeletedAll, Name: "gosession_sessions_deleted_all_total", Help: "Logout-everywhere operations."},
	{ID: goSession.MetricSessionsDeletedOthers, Name: "gosession_sessions_deleted_others_total", Help: "Logout-other-devices operations."},
	{ID: goSession.MetricSessionWriteFailure, Name: "gosession_session_write_failure_total", Help: "Session writes that failed on a backend."},
	{ID: goSession.MetricGuardAccepted, Name: "gosession_guard_accepted_total", Help: "Requests admitted by the session guard."},
	{ID: goSession.MetricGuardUnauthenticated, Name: "gosession_guard_unauthenticated_total", Help: "Requests without a usable session ticket."},
	{ID: goSession.MetricGuardInvalidated, Name: "gosession_guard_invalidated_total", Help: "Requests carrying an invalidated session."},
	{ID: goSession.MetricGuardLedgerHit, Name: "gosession_guard_ledger_hit_total", Help: "Rejections decided by the invalidation ledger."},
	{ID: goSession.MetricGuardDegraded, Name: "gosession_guard_degraded_total", Help: "Requests admitted fail-open after a backend error."},
	{ID: goSession.MetricGuardInfraRejected, Name: "gosession_guard_infra_rejected_total", Help: "Requests rejected fail-closed after a backend error."},
	{ID: goSession.MetricActivityTouched, Name: "gosession_activity_touched_total", Help: "Session activity updates."},
	{ID: goSession.MetricCleanupRemoved, Name: "gosession_cleanup_removed_total", Help: "Expired registry records removed by cleanup sweeps."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricGuardLatency, Name: "gosession_guard_latency_seconds", Help: "Session guard latency."},
}

// AuditDroppedName is the counter for audit events dropped on a full buffer.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."

// BucketCount is the number of histogram buckets, including +Inf.
const BucketCount = 8

// HistogramBoundSuffix renders each bucket bound for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	bounds := goSession.LatencyBucketBounds()
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
