package backend

import (
	"context"
	"fmt"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// ListHospitals returns the hospitals a booking can target.
func (c *Client) ListHospitals(ctx context.Context) ([]booking.CatalogEntry, error) {
	var out []booking.CatalogEntry
	if err := c.do(ctx, "GET", "/hospitals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDoctors returns the doctors practicing at a hospital.
func (c *Client) ListDoctors(ctx context.Context, hospitalID int64) ([]booking.CatalogEntry, error) {
	var out []booking.CatalogEntry
	if err := c.do(ctx, "GET", fmt.Sprintf("/hospitals/%d/doctors", hospitalID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Catalog loads hospitals and, for the selected hospital, its doctors. The
// hospital selection is resolved the same way the booking builder does.
func (c *Client) Catalog(ctx context.Context, hospitalSelection string) (booking.Catalog, error) {
	hospitals, err := c.ListHospitals(ctx)
	if err != nil {
		return booking.Catalog{}, fmt.Errorf("backend: load hospitals: %w", err)
	}
	catalog := booking.Catalog{Hospitals: hospitals}
	hospital, ok := booking.Resolve(hospitals, hospitalSelection)
	if !ok {
		return catalog, nil
	}
	doctors, err := c.ListDoctors(ctx, hospital.ID)
	if err != nil {
		return booking.Catalog{}, fmt.Errorf("backend: load doctors: %w", err)
	}
	catalog.Doctors = doctors
	return catalog, nil
}
