package annotate

import "errors"

var (
	ErrEmptyText          = errors.New("text is required")
	ErrTextTooLong        = errors.New("text exceeds the maximum length")
	ErrServiceUnavailable = errors.New("annotation service unavailable")
	ErrUnexpectedResponse = errors.New("unexpected annotation service response")
)
