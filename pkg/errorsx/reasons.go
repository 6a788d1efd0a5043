package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// ReasonInvalidInput marks bad URLs or parameters. Never retried.
	ReasonInvalidInput ReasonCode = "invalid_input"

	// ReasonNotFound marks a missing session or lesson.
	ReasonNotFound ReasonCode = "not_found"

	ReasonExtraction     ReasonCode = "extraction"
	ReasonExtractionHTTP ReasonCode = "extraction_http"

	ReasonScriptGeneration ReasonCode = "script_generation"
	ReasonScriptSchema     ReasonCode = "script_schema"
	ReasonLLMRateLimit     ReasonCode = "llm_rate_limit"

	ReasonSynthesis    ReasonCode = "synthesis"
	ReasonTTSRateLimit ReasonCode = "tts_rate_limit"

	ReasonStitch  ReasonCode = "stitch"
	ReasonStorage ReasonCode = "storage"
)
