package domain

import "errors"

// ErrorKind is the stable, documented classification reported to callers.
type ErrorKind string

const (
	KindInvalidRequest        ErrorKind = "InvalidRequest"
	KindInvalidSource         ErrorKind = "InvalidSource"
	KindSourceInactive        ErrorKind = "SourceInactive"
	KindSourceUnavailable     ErrorKind = "SourceUnavailable"
	KindSourceMalformed       ErrorKind = "SourceMalformed"
	KindNoResultsFound        ErrorKind = "NoResultsFound"
	KindSummarizationFailed   ErrorKind = "SummarizationFailed"
	KindSummarizationTooLarge ErrorKind = "SummarizationTooLarge"
	KindCacheUnavailable      ErrorKind = "CacheUnavailable"
	KindInternal              ErrorKind = "Internal"
)

type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return string(e.Kind) + ": " + e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return string(e.Kind) + ": " + e.Msg
	case e.Err != nil:
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrInvalidSource         = &Error{Kind: KindInvalidSource}
	ErrSourceInactive        = &Error{Kind: KindSourceInactive}
	ErrSourceUnavailable     = &Error{Kind: KindSourceUnavailable}
	ErrSourceMalformed       = &Error{Kind: KindSourceMalformed}
	ErrNoResultsFound        = &Error{Kind: KindNoResultsFound}
	ErrSummarizationFailed   = &Error{Kind: KindSummarizationFailed}
	ErrSummarizationTooLarge = &Error{Kind: KindSummarizationTooLarge}
	ErrCacheUnavailable      = &Error{Kind: KindCacheUnavailable}
)

// E builds a classified error.
func E(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain, or Internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Absorbable reports whether an adapter failure should count as "no data from this source".
func Absorbable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrSourceMalformed)
}
