package classifier

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RuleClassifier evaluates a CEL expression. The expression sees the
// lowercased query as `query` and the keyword list as `keywords`, e.g.
//
//	keywords.exists(k, query.contains(k)) && !query.startsWith("what is")
type RuleClassifier struct {
	program  cel.Program
	keywords []string
	log      *logrus.Logger
}

func NewRuleClassifier(rule string, keywords []string, log *logrus.Logger) (*RuleClassifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("query", cel.StringType),
		cel.Variable("keywords", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}

	ast, iss := env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "compile diagnostic rule")
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("diagnostic rule must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build diagnostic rule program")
	}
	return &RuleClassifier{program: prg, keywords: keywords, log: log}, nil
}

func (c *RuleClassifier) IsDiagnostic(query string) bool {
	out, _, err := c.program.Eval(map[string]interface{}{
		"query":    strings.ToLower(query),
		"keywords": c.keywords,
	})
	if err != nil {
		c.log.WithError(err).Debug("diagnostic rule evaluation failed")
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
