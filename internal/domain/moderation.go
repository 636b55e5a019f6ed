package domain

// Verdict is the tagged result of the moderation collaborator.
// Fallback marks verdicts produced by the local rule path when the
// collaborator was unavailable or timed out.
type Verdict struct {
	SeverityEstimate Severity `json:"severity_estimate"`
	AbuseScore       float64  `json:"abuse_score"`
	Tags             []string `json:"tags,omitempty"`
	Confidence       float64  `json:"confidence"`
	Fallback         bool     `json:"fallback"`
}

// FallbackVerdict is the conservative classification used when the
// moderation collaborator cannot answer: medium severity, no abuse signal.
func FallbackVerdict() Verdict {
	return Verdict{
		SeverityEstimate: SeverityMedium,
		AbuseScore:       0,
		Confidence:       0.5,
		Fallback:         true,
	}
}
