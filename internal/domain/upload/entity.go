package upload

import (
	"time"

	"github.com/google/uuid"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/report"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
)

// Upload is a staged photograph. ID is derived from the content, so
// byte-identical photos share an ID.
type Upload struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"data"`
	StagedAt    time.Time `json:"staged_at"`
}

// IDFor returns the upload identity of content.
func IDFor(data []byte) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, data)
}

// Asset converts the upload for normalization.
func (u *Upload) Asset() imaging.Asset {
	return imaging.Asset{Name: u.Name, Data: u.Data}
}

// Form holds the report fields kept between invocations.
type Form struct {
	SiteID        string `json:"site_id"`
	ExecutionDate string `json:"execution_date"`
	Location      string `json:"location"`
}

// Merge returns f with every non-empty field of other applied.
func (f Form) Merge(other Form) Form {
	if other.SiteID != "" {
		f.SiteID = other.SiteID
	}
	if other.ExecutionDate != "" {
		f.ExecutionDate = other.ExecutionDate
	}
	if other.Location != "" {
		f.Location = other.Location
	}
	return f
}

// Missing lists the JSON names of empty fields.
func (f Form) Missing() []string {
	var missing []string
	if f.SiteID == "" {
		missing = append(missing, "site_id")
	}
	if f.ExecutionDate == "" {
		missing = append(missing, "execution_date")
	}
	if f.Location == "" {
		missing = append(missing, "location")
	}
	return missing
}

// Request converts the form into a report request.
func (f Form) Request() *report.GenerateRequest {
	return &report.GenerateRequest{
		SiteID:        f.SiteID,
		ExecutionDate: f.ExecutionDate,
		Location:      f.Location,
	}
}

// Status summarizes a session.
type Status struct {
	Session string         `json:"session"`
	Form    Form           `json:"form"`
	Missing []string       `json:"missing,omitempty"`
	Counts  map[string]int `json:"counts"`
	Total   int            `json:"total"`
}

// Ready reports whether every form field is filled.
func (s *Status) Ready() bool {
	return len(s.Missing) == 0
}
