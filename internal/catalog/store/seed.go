package store

import (
	"medtrace/internal/catalog/models"
)

// SeedDev fills an in-memory catalog with a small district and medicine set
// so the server is usable without a database. The ids mirror the pilot
// deployment's reference data.
func SeedDev(s *InMemory) {
	districts := []models.District{
		{ID: "DST-COLOMBO", Name: "Colombo", Population: 2455000, Type: models.DistrictUrban, Lat: 6.9271, Lng: 79.8612},
		{ID: "DST-KANDY", Name: "Kandy", Population: 1461000, Type: models.DistrictMixed, Lat: 7.2906, Lng: 80.6337},
		{ID: "DST-JAFFNA", Name: "Jaffna", Population: 594000, Type: models.DistrictMixed, Lat: 9.6615, Lng: 80.0255},
		{ID: "DST-BADULLA", Name: "Badulla", Population: 886000, Type: models.DistrictRural, Lat: 6.9934, Lng: 81.0550},
	}
	for _, d := range districts {
		s.PutDistrict(d)
	}

	medicines := []models.Medicine{
		{ID: "MED-PARA-500", Name: "Paracetamol 500mg", Category: "analgesic", Unit: "tablet", ShelfLifeDays: 1095, ColdChain: false, UnitsPerCase: 1000},
		{ID: "MED-ORS", Name: "Oral Rehydration Salts", Category: "rehydration", Unit: "sachet", ShelfLifeDays: 730, ColdChain: false, UnitsPerCase: 500},
		{ID: "MED-AMOX-250", Name: "Amoxicillin 250mg", Category: "antibiotic", Unit: "capsule", ShelfLifeDays: 730, ColdChain: false, UnitsPerCase: 600},
		{ID: "MED-INSULIN", Name: "Insulin (human)", Category: "hormone", Unit: "vial", ShelfLifeDays: 365, ColdChain: true, UnitsPerCase: 50},
	}
	for _, m := range medicines {
		s.PutMedicine(m)
	}
}
