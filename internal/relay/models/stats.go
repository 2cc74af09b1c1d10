package models

// BatchStats is the per-batch line of the stats report.
type BatchStats struct {
	BatchID   string
	FileCount int64
	Downloads int64
}

// Stats is the aggregate view returned to allow-listed uploaders.
type Stats struct {
	TotalBatches   int64
	TotalFiles     int64
	TotalDownloads int64
	// Batches is ordered by Downloads, highest first.
	Batches []BatchStats
}
