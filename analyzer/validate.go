package analyzer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrSchema is returned by Validate when an analysis does not have the
// expected shape
var ErrSchema = errors.New("analysis failed schema validation")

var validate = validator.New()

// SchemaError lists the individual violations found by Validate
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %d violation(s)", ErrSchema, len(e.Violations))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// Validate checks an analysis against the response shape before it leaves
// the service: enumerated statuses, score bounds and that the score counts
// reconcile with the tag list.
func Validate(analysis *PageAnalysis) error {
	if analysis == nil {
		return &SchemaError{Violations: []string{"analysis is nil"}}
	}

	var violations []string

	if err := validate.Struct(analysis); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate analysis: %w", err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations,
				fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	counted := analysis.Score.Implemented + analysis.Score.NeedsImprovement + analysis.Score.Missing
	if counted != len(analysis.MetaTags) {
		violations = append(violations,
			fmt.Sprintf("PageAnalysis.Score: counts sum to %d but %d tags were listed", counted, len(analysis.MetaTags)))
	}

	if len(violations) > 0 {
		return &SchemaError{Violations: violations}
	}
	return nil
}
