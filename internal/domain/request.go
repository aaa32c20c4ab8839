package domain

import (
	"errors"
	"strings"
)

type Mode string

const (
	ModeSearch     Mode = "search"
	ModeReport     Mode = "report"
	ModeSpeciality Mode = "speciality"
)

// Request is the descriptor accepted by the service.
// Query holds the search text, the speciality name or the profile identifier depending on Mode.
type Request struct {
	Mode   Mode   `json:"mode"`
	Source string `json:"source,omitempty"`
	Query  string `json:"query"`
}

// Validate checks required parameters for the mode.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return E(KindInvalidRequest, "query parameter is required", nil)
	}
	switch r.Mode {
	case ModeSearch:
		return nil
	case ModeReport, ModeSpeciality:
		if strings.TrimSpace(r.Source) == "" {
			return E(KindInvalidRequest, "source parameter is required", nil)
		}
		return nil
	case "":
		return E(KindInvalidRequest, "mode is required", nil)
	}
	return E(KindInvalidRequest, "unknown mode "+string(r.Mode), nil)
}

// Response is the envelope returned to callers.
type Response struct {
	Success   bool              `json:"success"`
	Source    string            `json:"source,omitempty"`
	Results   []ProfileRecord   `json:"results,omitempty"`
	Report    *ReputationReport `json:"report,omitempty"`
	ErrorKind ErrorKind         `json:"errorKind,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// Failure converts err into a failure envelope.
func Failure(err error) Response {
	msg := err.Error()
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		msg = de.Msg
	}
	return Response{Success: false, ErrorKind: KindOf(err), Message: msg}
}
