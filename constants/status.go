package constants

// JobStatus is the canonical status for rows in processing_job.
// The non-terminal values mirror the orchestrator's stage progression.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending     JobStatus = "PENDING"
	JobStatusRasterizing JobStatus = "RASTERIZING"
	JobStatusExtracting  JobStatus = "EXTRACTING"
	JobStatusNormalizing JobStatus = "NORMALIZING"
	JobStatusStructuring JobStatus = "STRUCTURING"
	JobStatusCompleted   JobStatus = "COMPLETED"
	JobStatusFailed      JobStatus = "FAILED" // terminal failure
)

// Method tags which strategy path produced a result.
type Method string

const (
	MethodTextExtraction Method = "text-extraction"
	MethodOCR            Method = "ocr"
	MethodHybrid         Method = "hybrid"
)
