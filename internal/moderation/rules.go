package moderation

import (
	"context"
	"regexp"
	"strings"

	"github.com/AzenoHI/travel-hi/internal/domain"
)

// RuleClassifier answers from the local rules alone. Used when the
// collaborator is disabled by config, and by tests.
type RuleClassifier struct{}

func (RuleClassifier) Classify(_ context.Context, description string, typ domain.IncidentType, _ domain.Location) (domain.Verdict, error) {
	v := ruleVerdict(description, typ)
	v.Fallback = false
	v.Confidence = 1.0
	return v, nil
}

// Local rule layer. Strong profanity is blocked regardless of the
// collaborator's availability; keyword heuristics drive the severity
// estimate on the fallback path.

var profanityStems = []string{
	"kurwa",
	"chuj", "huj",
	"jeb",
	"pierdol",
	"spierdal",
	"skurwysyn",
	"pizd",
}

var profanityPatterns = compileStems(profanityStems)

// compileStems builds fuzzy patterns that survive letter-spacing tricks
// like "k u r w a" or "k.u.r.w.a".
func compileStems(stems []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(stems))
	for _, stem := range stems {
		var sb strings.Builder
		sb.WriteString(`(?i)\b`)
		for _, ch := range stem {
			sb.WriteString(regexp.QuoteMeta(string(ch)))
			sb.WriteString(`[\W_]*`)
		}
		out = append(out, regexp.MustCompile(sb.String()))
	}
	return out
}

func containsStrongProfanity(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	for _, p := range profanityPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

var highSeverityKeywords = []string{
	"collision", "crash", "pileup", "injured", "injury", "fire",
	"overturned", "fatal", "emergency",
	"wypadek", "zderzenie", "karambol", "ranni", "pozar",
}

var lowSeverityKeywords = []string{
	"minor", "slow", "small", "light",
	"drobny", "lekki", "powolny",
}

// ruleVerdict is the conservative fallback classification: medium severity
// unless keywords or the incident type argue otherwise, abuse only on a
// local profanity match.
func ruleVerdict(description string, typ domain.IncidentType) domain.Verdict {
	v := domain.FallbackVerdict()

	if containsStrongProfanity(description) {
		v.AbuseScore = 1.0
		v.Tags = append(v.Tags, "profanity")
	}

	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, highSeverityKeywords):
		v.SeverityEstimate = domain.SeverityHigh
	case containsAny(lower, lowSeverityKeywords):
		v.SeverityEstimate = domain.SeverityLow
	case typ == domain.IncidentClosure:
		v.SeverityEstimate = domain.SeverityHigh
	case typ == domain.IncidentRoadwork:
		v.SeverityEstimate = domain.SeverityLow
	}

	return v
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
