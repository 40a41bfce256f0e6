package utility

import "fmt"

// AppError is a configuration or startup failure reported to the operator as is.
type AppError struct {
	Section   string
	Parameter string
	message   string
}

func (e *AppError) Error() string {
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("missed %s parameter in %s configuration", e.Parameter, e.Section)
}

func Err(m string) error {
	return &AppError{message: m}
}

// MissingParameter reports a required config value left empty.
func MissingParameter(section, parameter string) error {
	return &AppError{Section: section, Parameter: parameter}
}
