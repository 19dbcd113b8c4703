package report

import (
	"strings"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/validator"
)

// GenerateRequest carries the form fields as typed by the user.
type GenerateRequest struct {
	SiteID        string `json:"site_id" validate:"notblank,max=64,excludesall=/\\"`
	ExecutionDate string `json:"execution_date" validate:"calendar_date"`
	Location      string `json:"location" validate:"notblank,max=200"`
}

// Validate checks the request at the input boundary.
func (r *GenerateRequest) Validate() error {
	if errs := validator.Validate(r); errs != nil {
		return apperror.Validation("validate request", "invalid report form", errs)
	}
	return nil
}

// ToMetadata validates the request and converts it.
func (r *GenerateRequest) ToMetadata() (Metadata, error) {
	if err := r.Validate(); err != nil {
		return Metadata{}, err
	}

	date, err := validator.ParseDate(r.ExecutionDate)
	if err != nil {
		return Metadata{}, apperror.Validation("validate request", "invalid report form",
			map[string]string{"execution_date": err.Error()})
	}

	return Metadata{
		SiteID:        strings.TrimSpace(r.SiteID),
		ExecutionDate: date,
		Location:      strings.TrimSpace(r.Location),
	}, nil
}
