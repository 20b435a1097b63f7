// Package models defines the reference catalog entities the transfer protocol
// resolves against. Districts and medicines are owned elsewhere; the custody
// core only reads them.
package models

import id "medtrace/pkg/domain"

// DistrictType coarsely classifies a district's settlement pattern.
type DistrictType string

const (
	DistrictUrban DistrictType = "urban"
	DistrictRural DistrictType = "rural"
	DistrictMixed DistrictType = "mixed"
)

// District is one administrative area that can send or receive transfers.
type District struct {
	ID         id.DistrictID `json:"id"`
	Name       string        `json:"name"`
	Population int           `json:"population"`
	Type       DistrictType  `json:"type"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
}

// Medicine is one catalog entry that transfers move between districts.
type Medicine struct {
	ID            id.MedicineID `json:"id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Unit          string        `json:"unit"`
	ShelfLifeDays int           `json:"shelf_life_days"`
	ColdChain     bool          `json:"cold_chain"`
	UnitsPerCase  int           `json:"units_per_case"`
}
