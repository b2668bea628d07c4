// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
)

// Item is one backend record as decoded from JSON.
type Item map[string]any

// ID returns the record identifier as a string ("" when absent).
func (i Item) ID() string {
	return FormatID(i["id"])
}

// FormatID renders a JSON id (number or string) without a decimal part.
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

// Page is one page of a backend collection.
type Page struct {
	Items    []Item `json:"items"`
	Count    int    `json:"count"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Mutation is one write against the backend.
type Mutation struct {
	// Key identifies the row the write belongs to in a bulk report.
	Key     string
	Method  string
	Path    string
	Payload map[string]any
}

// MutationResult is the outcome of a Mutation.
type MutationResult struct {
	Key    string
	Status int
	Body   Item
	Err    error
}

// Job carries a mutation through the queue; the executing worker sends
// exactly one result on Reply.
type Job struct {
	Mutation Mutation
	Reply    chan<- MutationResult
}

// ItemFailure describes one failed write of a bulk dispatch.
type ItemFailure struct {
	Key     string `json:"key"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// BulkReport is the per-item outcome of a fan-out write.
type BulkReport struct {
	Total     int           `json:"total"`
	Succeeded []string      `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// OK reports whether every write succeeded.
func (r BulkReport) OK() bool { return len(r.Failed) == 0 }

// AttendanceStatus of a participant in one session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRE"
	AttendanceAbsent  AttendanceStatus = "AUS"
	AttendanceLate    AttendanceStatus = "TAR"
	AttendanceExcused AttendanceStatus = "JUS"
)

// DefaultAttendance applies to roster rows without a record.
const DefaultAttendance = AttendancePresent

// AttendanceStatuses lists the statuses in display order.
var AttendanceStatuses = []AttendanceStatus{AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused} //nolint:gochecknoglobals // enumeration

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	for _, known := range AttendanceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the Spanish display name.
func (s AttendanceStatus) Label() string {
	switch s {
	case AttendancePresent:
		return "Presente"
	case AttendanceAbsent:
		return "Ausente"
	case AttendanceLate:
		return "Tardanza"
	case AttendanceExcused:
		return "Justificado"
	default:
		return string(s)
	}
}

// Participant roles in a course.
const (
	RoleInstructor = "INS"
	RoleStudent    = "EST"
)

// Enrollment statuses.
const (
	EnrollmentRequested = "REQ"
	EnrollmentEnrolled  = "ENR"
	EnrollmentRejected  = "REJ"
)

// AcademicStatus of a graded participant.
type AcademicStatus string

const (
	AcademicPending  AcademicStatus = "PEN"
	AcademicApproved AcademicStatus = "APR"
	AcademicFailed   AcademicStatus = "REP"
)

// Valid reports whether s is a known academic status.
func (s AcademicStatus) Valid() bool {
	return s == AcademicPending || s == AcademicApproved || s == AcademicFailed
}

// ReviewStatus of a performance review.
type ReviewStatus string

const (
	ReviewDraft    ReviewStatus = "BOR"
	ReviewSent     ReviewStatus = "ENV"
	ReviewAccepted ReviewStatus = "ACE"
)
