package errors

import "go.uber.org/multierr"

// Validation folds field failures gathered with multierr.Append into one
// VALIDATION_ERROR. Each failure is listed under details.fields. A nil err
// returns nil.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	failures := multierr.Errors(err)
	fields := make([]string, 0, len(failures))
	for _, f := range failures {
		fields = append(fields, f.Error())
	}
	return Wrap(CodeValidation, err, "validation failed").
		WithDetails(map[string]any{"fields": fields})
}
