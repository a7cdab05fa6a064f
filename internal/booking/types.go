package booking

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two bookable request types.
type Kind string

const (
	KindAppointment Kind = "appointment"
	KindOperation   Kind = "operation"
)

// ParseKind accepts the wire form of a kind, case-insensitively.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindAppointment:
		return KindAppointment, nil
	case KindOperation:
		return KindOperation, nil
	default:
		return "", fmt.Errorf("booking: unknown kind %q", value)
	}
}

func (k Kind) Valid() bool {
	return k == KindAppointment || k == KindOperation
}

// Status is owned by the backend. The front desk only ever reads it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Record is the backend's view of a booking after creation.
type Record struct {
	ID     int64  `json:"id"`
	Kind   Kind   `json:"kind,omitempty"`
	Status Status `json:"status"`
}

// CatalogEntry is a selectable hospital or doctor.
type CatalogEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Catalog holds the resolved selections offered by the booking form.
type Catalog struct {
	Hospitals []CatalogEntry
	Doctors   []CatalogEntry
}

// FormValues are the raw strings submitted by the booking form.
type FormValues struct {
	Kind        string `form:"kind" validate:"required,oneof=appointment operation"`
	Hospital    string `form:"hospital" validate:"required"`
	Doctor      string `form:"doctor" validate:"required"`
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Time        string `form:"time" validate:"required"`
	Specialty   string `form:"specialty" validate:"required_if=Kind operation,max=120"`
	PatientName string `form:"patient_name" validate:"omitempty,max=120"`
	Phone       string `form:"phone" validate:"omitempty,min=7,max=20"`
	Notes       string `form:"notes" validate:"omitempty,max=1000"`
}

// Request is the backend-shaped booking payload.
type Request struct {
	Kind        Kind   `json:"-"`
	HospitalID  int64  `json:"hospitalId"`
	DoctorID    int64  `json:"doctorId"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Specialty   string `json:"specialty,omitempty"`
	PatientName string `json:"patientName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Notes       string `json:"notes,omitempty"`
}
