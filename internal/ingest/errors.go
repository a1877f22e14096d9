package ingest

import "fmt"

// Code classifies a rejected upload.
type Code string

const (
	CodeNoFile         Code = "no_file"
	CodeNoFilename     Code = "no_filename"
	CodeBadExtension   Code = "bad_extension"
	CodeEmptyCSV       Code = "empty_csv"
	CodeUnparseableCSV Code = "unparseable_csv"
	CodeTooLarge       Code = "too_large"
)

// ValidationError reports an upload the client must fix. Message is safe to
// show to end users; Err carries the underlying cause, if any.
type ValidationError struct {
	Code    Code
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(code Code, msg string, cause error) *ValidationError {
	return &ValidationError{Code: code, Message: msg, Err: cause}
}

// ErrNoFile is returned when the request carries no file part.
func ErrNoFile() *ValidationError {
	return invalid(CodeNoFile, "No file part in the request", nil)
}

// ErrTooLarge is returned when the upload exceeds the size ceiling.
func ErrTooLarge(limit int64) *ValidationError {
	return invalid(CodeTooLarge, fmt.Sprintf("File too large. Maximum size is %d MB.", limit>>20), nil)
}
