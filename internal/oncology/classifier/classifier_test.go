package classifier

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(nil)

	diagnostic := []string{
		"Can you look at my blood test?",
		"My PSA is 9.1, what does that mean",
		"Here is my biopsy REPORT",
		"interpret my lab result please",
	}
	for _, q := range diagnostic {
		assert.True(t, c.IsDiagnostic(q), q)
	}

	general := []string{
		"What are early symptoms of blood cancer?",
		"How can I prevent skin cancer?",
		"",
	}
	for _, q := range general {
		assert.False(t, c.IsDiagnostic(q), q)
	}
}

func TestKeywordClassifierCustomKeywords(t *testing.T) {
	c := NewKeywordClassifier([]string{" Mammogram ", ""})
	assert.Equal(t, []string{"mammogram"}, c.Keywords())
	assert.True(t, c.IsDiagnostic("my MAMMOGRAM came back"))
	assert.False(t, c.IsDiagnostic("my blood test"))
}

func TestKeywordClassifierIsDeterministic(t *testing.T) {
	c := NewKeywordClassifier(nil)
	q := "what do my results say"
	first := c.IsDiagnostic(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.IsDiagnostic(q))
	}
}

func TestRuleClassifier(t *testing.T) {
	c, err := NewRuleClassifier(`keywords.exists(k, query.contains(k)) && !query.startsWith("what is")`, []string{"psa"}, quietLogger())
	require.NoError(t, err)

	assert.True(t, c.IsDiagnostic("My PSA is high"))
	assert.False(t, c.IsDiagnostic("What is PSA?"))
	assert.False(t, c.IsDiagnostic("tell me about cancer"))
}

func TestRuleClassifierRejectsBadRules(t *testing.T) {
	_, err := NewRuleClassifier(`query.contains(`, nil, quietLogger())
	assert.Error(t, err)

	_, err = NewRuleClassifier(`query + "x"`, nil, quietLogger())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c, err := New("", nil, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &KeywordClassifier{}, c)

	c, err = New(`query.matches("^scan")`, nil, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &RuleClassifier{}, c)
	assert.True(t, c.IsDiagnostic("Scan shows a 2cm mass"))
}
