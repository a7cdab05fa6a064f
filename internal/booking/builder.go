package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?\s*(?:[zZ]|[+-]\d{2}:?\d{2})?$`)

// Builder turns booking form input into backend requests. It is pure and safe
// for concurrent use.
type Builder struct {
	validate *validator.Validate
}

// NewBuilder constructs a Builder with the form validation rules registered.
func NewBuilder() *Builder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Builder{validate: v}
}

// Validate checks the form on its own, without a catalog. Problems come back
// as *ValidationError keyed by form field name.
func (b *Builder) Validate(form FormValues) error {
	_, err := b.validated(form)
	return err
}

// Build validates the form, resolves hospital and doctor selections against the
// catalog and returns the normalized request. Expected failures come back as
// *ValidationError or *SelectionError.
func (b *Builder) Build(form FormValues, catalog Catalog) (*Request, error) {
	form, err := b.validated(form)
	if err != nil {
		return nil, err
	}

	hospital, ok := Resolve(catalog.Hospitals, form.Hospital)
	if !ok {
		return nil, &SelectionError{Field: "hospital", Value: form.Hospital}
	}
	doctor, ok := Resolve(catalog.Doctors, form.Doctor)
	if !ok {
		return nil, &SelectionError{Field: "doctor", Value: form.Doctor}
	}

	req := &Request{
		Kind:        Kind(form.Kind),
		HospitalID:  hospital.ID,
		DoctorID:    doctor.ID,
		Date:        form.Date,
		Time:        form.Time,
		PatientName: form.PatientName,
		Phone:       form.Phone,
		Notes:       form.Notes,
	}
	if req.Kind == KindOperation {
		req.Specialty = form.Specialty
	}
	return req, nil
}

// validated returns the trimmed form with Kind lowercased and Time normalized
// to HH:MM.
func (b *Builder) validated(form FormValues) (FormValues, error) {
	form = trimForm(form)
	form.Kind = strings.ToLower(form.Kind)

	verr := &ValidationError{}
	if err := b.validate.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return form, fmt.Errorf("booking: validate form: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fe.Field(), describe(fe))
		}
	}

	if form.Time != "" {
		t, err := NormalizeTime(form.Time)
		if err != nil {
			verr.add("time", "must be a time of day like 14:30")
		}
		form.Time = t
	}
	if len(verr.Fields) > 0 {
		return form, verr
	}
	return form, nil
}

// Resolve finds a catalog entry by id first and falls back to an exact display
// name match.
func Resolve(entries []CatalogEntry, selection string) (CatalogEntry, bool) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return CatalogEntry{}, false
	}
	if id, err := strconv.ParseInt(selection, 10, 64); err == nil {
		for _, e := range entries {
			if e.ID == id {
				return e, true
			}
		}
	}
	for _, e := range entries {
		if e.Name == selection {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// NormalizeTime reduces a time string to HH:MM, dropping seconds, fractions and
// any timezone suffix.
func NormalizeTime(value string) (string, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", fmt.Errorf("booking: invalid time %q", value)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("booking: time out of range %q", value)
	}
	if m[3] != "" {
		if sec, _ := strconv.Atoi(m[3]); sec > 59 {
			return "", fmt.Errorf("booking: time out of range %q", value)
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func trimForm(f FormValues) FormValues {
	f.Kind = strings.TrimSpace(f.Kind)
	f.Hospital = strings.TrimSpace(f.Hospital)
	f.Doctor = strings.TrimSpace(f.Doctor)
	f.Date = strings.TrimSpace(f.Date)
	f.Time = strings.TrimSpace(f.Time)
	f.Specialty = strings.TrimSpace(f.Specialty)
	f.PatientName = strings.TrimSpace(f.PatientName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date like 2024-05-01"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
