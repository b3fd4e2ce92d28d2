package model

// AnalyticsOverview holds the headline counters of the request collection.
type AnalyticsOverview struct {
	TotalRequests     int `json:"total_requests"`
	PendingRequests   int `json:"pending_requests"`
	CompletedRequests int `json:"completed_requests"`
	UrgentRequests    int `json:"urgent_requests"`
	RecentRequests    int `json:"recent_requests"`
}

// BucketCount is one row of a group-by breakdown.
type BucketCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AnalyticsSnapshot is computed fresh on each call, never cached. All figures
// come from a single point-in-time read of the collection.
type AnalyticsSnapshot struct {
	Overview        AnalyticsOverview `json:"overview"`
	RequestTypes    []BucketCount     `json:"request_types"`
	StatusBreakdown []BucketCount     `json:"status_breakdown"`
}
