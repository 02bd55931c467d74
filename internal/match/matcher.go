// Package match reconciles semantically-equivalent markets across venues.
// Matching is a pure pairwise comparison: no I/O, no mutation of inputs, and
// deterministic output given the same inputs and config.
package match

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// Config holds the similarity weights and acceptance threshold. Weights need
// not sum to exactly 1 but should for interpretability.
type Config struct {
	QuestionWeight float64
	OutcomeWeight  float64
	TemporalWeight float64
	MinSimilarity  float64
}

// DefaultConfig returns the standard weighting: question text dominates,
// outcome structure second, temporal proximity last.
func DefaultConfig() Config {
	return Config{
		QuestionWeight: 0.5,
		OutcomeWeight:  0.3,
		TemporalWeight: 0.2,
		MinSimilarity:  0.7,
	}
}

// stopWords are filtered out of question tokens before Jaccard comparison.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "at": true, "be": true,
	"by": true, "for": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "will": true,
	"with": true, "this": true, "that": true, "before": true, "after": true,
}

// FindMatches compares every cross-venue pair between recordsA and recordsB
// and returns the pairs whose combined similarity meets cfg.MinSimilarity,
// sorted by similarity descending (ties keep input iteration order).
// Same-venue pairs are rejected before any scoring. O(|A|*|B|) pairwise,
// which is fine because batches are dozens of records, not millions.
func FindMatches(recordsA, recordsB []domain.MarketRecord, cfg Config) []domain.MatchedPair {
	var pairs []domain.MatchedPair
	for _, a := range recordsA {
		for _, b := range recordsB {
			if a.Venue == b.Venue {
				continue
			}
			sim := Similarity(a, b, cfg)
			if sim < cfg.MinSimilarity {
				continue
			}
			pairs = append(pairs, domain.MatchedPair{
				A:          a,
				B:          b,
				Similarity: sim,
				Divergence: Divergence(a, b),
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs
}

// Similarity is the weighted sum of the question, outcome, and temporal
// sub-scores, each in [0,1].
func Similarity(a, b domain.MarketRecord, cfg Config) float64 {
	return cfg.QuestionWeight*questionSimilarity(a.Question, b.Question) +
		cfg.OutcomeWeight*outcomeSimilarity(a, b) +
		cfg.TemporalWeight*temporalSimilarity(a.CloseTime, b.CloseTime)
}

// questionSimilarity is the Jaccard index over normalized question tokens:
// |A ∩ B| / |A ∪ B|, or 0 if either token set is empty.
func questionSimilarity(qa, qb string) float64 {
	ta := tokenize(qa)
	tb := tokenize(qb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return jaccard(ta, tb)
}

// outcomeSimilarity short-circuits to 1.0 when both markets are binary with a
// literal "yes" outcome: virtually all binary markets phrase outcomes as
// Yes/No regardless of question wording, so label comparison adds nothing.
// Otherwise it falls back to Jaccard over lower-cased outcome labels.
func outcomeSimilarity(a, b domain.MarketRecord) float64 {
	if _, aYes := a.YesProbability(); aYes && a.IsBinary() {
		if _, bYes := b.YesProbability(); bYes && b.IsBinary() {
			return 1.0
		}
	}
	la := labelSet(a.Outcomes)
	lb := labelSet(b.Outcomes)
	if len(la) == 0 || len(lb) == 0 {
		return 0
	}
	return jaccard(la, lb)
}

// temporalSimilarity is a step function of the absolute gap between the two
// resolution times. Unknown (zero) timestamps degrade to 0 rather than
// failing the whole record.
func temporalSimilarity(ta, tb time.Time) float64 {
	if ta.IsZero() || tb.IsZero() {
		return 0
	}
	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 24*time.Hour:
		return 1.0
	case diff <= 7*24*time.Hour:
		return 0.7
	case diff <= 30*24*time.Hour:
		return 0.4
	default:
		return 0
	}
}

// Divergence is the absolute probability gap between the two records'
// comparable outcomes. When both sides expose a "yes" outcome the gap is
// |yesA - yesB|; otherwise it is the mean gap over outcome labels present on
// both sides, or 0 when no labels overlap.
func Divergence(a, b domain.MarketRecord) float64 {
	if pa, ok := a.YesProbability(); ok {
		if pb, ok := b.YesProbability(); ok {
			return math.Abs(pa - pb)
		}
	}

	var sum float64
	var n int
	for _, o := range a.Outcomes {
		if pb, ok := b.OutcomeProbability(o.Label); ok {
			sum += math.Abs(o.Probability - pb)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// tokenize lower-cases the question, strips punctuation, and returns the set
// of tokens longer than one character that are not stop words.
func tokenize(s string) map[string]bool {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(sb.String()) {
		if len(tok) > 1 && !stopWords[tok] {
			tokens[tok] = true
		}
	}
	return tokens
}

func labelSet(outcomes []domain.Outcome) map[string]bool {
	set := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		set[strings.ToLower(o.Label)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	var inter int
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
