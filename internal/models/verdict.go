package models

// ValidationVerdict is the outcome of a validation check.
type ValidationVerdict struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	// Err is the typed cause of a failed verdict, nil when Valid.
	Err error `json:"-"`
}

// Pass builds a successful verdict.
func Pass(message string) ValidationVerdict {
	return ValidationVerdict{Valid: true, Message: message}
}

// Fail builds a failed verdict from err. The message defaults to err's text.
func Fail(err error, message string) ValidationVerdict {
	if message == "" {
		message = err.Error()
	}
	return ValidationVerdict{Valid: false, Message: message, Err: err}
}
