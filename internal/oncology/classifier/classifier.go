package classifier

import (
	"strings"

	"oncology-assist-backend/internal/oncology/helpers"

	"github.com/sirupsen/logrus"
)

// Classifier decides whether a query asks about a specific case or report
// (diagnostic) or about a general topic. Implementations are deterministic
// and have no side effects.
type Classifier interface {
	IsDiagnostic(query string) bool
}

var DefaultKeywords = []string{
	"report",
	"test result",
	"lab result",
	"biopsy",
	"biomarker",
	"blood test",
	"scan result",
	"my results",
	"diagnose",
	"risk score",
	"tumor marker",
	"psa",
	"ca-125",
	"cea",
	"pathology",
	"hemoglobin",
	"wbc",
	"platelet",
}

// KeywordClassifier matches diagnostic phrases case-insensitively.
type KeywordClassifier struct {
	keywords []string
}

func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	normalised := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalised = append(normalised, k)
		}
	}
	return &KeywordClassifier{keywords: normalised}
}

func (c *KeywordClassifier) IsDiagnostic(query string) bool {
	return helpers.ContainsAny(query, c.keywords)
}

func (c *KeywordClassifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// New returns a RuleClassifier when rule is set and a KeywordClassifier otherwise.
func New(rule string, keywords []string, log *logrus.Logger) (Classifier, error) {
	kw := NewKeywordClassifier(keywords)
	if strings.TrimSpace(rule) == "" {
		return kw, nil
	}
	return NewRuleClassifier(rule, kw.Keywords(), log)
}
