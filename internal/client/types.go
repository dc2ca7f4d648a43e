package client

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SourceRequest is the body of a catalog fetch.
type SourceRequest struct {
	URL string `json:"url"`
}

// StartRequest is the body of a job launch.
type StartRequest struct {
	URL     string   `json:"url"`
	Targets []string `json:"targets"`
}

// Target is one selectable university. Its name is its identity.
type Target struct {
	Name string `json:"name" validate:"required"`
}

type UniversitiesResponse struct {
	Universities []Target `json:"universities" validate:"required,dive"`
}

type StartResponse struct {
	JobID string `json:"job_id" validate:"required"`
}

type Status string

const (
	// StatusStarting is reported by the backend before the first progress
	// callback. It is not terminal.
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further polling may happen after s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type JobStatus struct {
	Status   Status `json:"status" validate:"required,oneof=starting running completed error"`
	Progress int    `json:"progress" validate:"min=0,max=100"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

type PreviewResponse struct {
	Preview []PreviewRow `json:"preview"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Preview columns produced by the backend.
const (
	FieldSchool     = "學校名稱"
	FieldDepartment = "學系名稱"
	FieldQuota      = "招生名額"
	FieldChinese    = "國文檢定標準"
	FieldEnglish    = "英文檢定標準"
	FieldMathA      = "數學A檢定標準"
	FieldMathB      = "數學B檢定標準"
	FieldSocial     = "社會檢定標準"
	FieldScience    = "自然檢定標準"
)

// PreviewRow is one record of the produced dataset keyed by column name.
// Columns the client does not know about are kept as they are.
type PreviewRow map[string]Cell

// Get returns the trimmed value of field, or "" when it is absent.
func (r PreviewRow) Get(field string) string {
	return strings.TrimSpace(string(r[field]))
}

func (r PreviewRow) School() string     { return r.Get(FieldSchool) }
func (r PreviewRow) Department() string { return r.Get(FieldDepartment) }
func (r PreviewRow) Quota() string      { return r.Get(FieldQuota) }

// Cell is a preview value. The backend emits strings, but numbers and nulls
// show up for quota columns depending on the source page.
type Cell string

func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	default:
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*c = Cell(b)
		return nil
	}
}
