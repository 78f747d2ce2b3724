package store

import (
	"time"

	"github.com/zulandar/garage/internal/models"
)

// Specs is the fixed-shape sub-record of optional spec strings nested under
// a Record's "specs" key.
type Specs struct {
	Engine   string `json:"engine"`
	Power    string `json:"power"`
	Torque   string `json:"torque"`
	Weight   string `json:"weight"`
	TopSpeed string `json:"topSpeed"`
}

// Record is the nested client-facing shape of one motorcycle build. The
// store is the only component that sees the flat persisted row; everything
// above it works with this shape.
type Record struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Year          int       `json:"year"`
	Description   string    `json:"description"`
	Modifications string    `json:"modifications"`
	Image         string    `json:"image"`
	Specs         Specs     `json:"specs"`
	CreatedAt     time.Time `json:"created_at"`
}

// toRow flattens a nested Record into the persisted row shape.
func toRow(r Record) models.Build {
	return models.Build{
		ID:            r.ID,
		Name:          r.Name,
		Category:      r.Category,
		Year:          r.Year,
		Description:   r.Description,
		Modifications: r.Modifications,
		Image:         r.Image,
		Engine:        r.Specs.Engine,
		Power:         r.Specs.Power,
		Torque:        r.Specs.Torque,
		Weight:        r.Specs.Weight,
		TopSpeed:      r.Specs.TopSpeed,
		CreatedAt:     r.CreatedAt,
	}
}

// fromRow reconstitutes the nested Record shape from a persisted row.
func fromRow(b models.Build) Record {
	return Record{
		ID:            b.ID,
		Name:          b.Name,
		Category:      b.Category,
		Year:          b.Year,
		Description:   b.Description,
		Modifications: b.Modifications,
		Image:         b.Image,
		Specs: Specs{
			Engine:   b.Engine,
			Power:    b.Power,
			Torque:   b.Torque,
			Weight:   b.Weight,
			TopSpeed: b.TopSpeed,
		},
		CreatedAt: b.CreatedAt,
	}
}
