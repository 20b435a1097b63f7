// Package domain holds the typed identifiers shared across services. Keeping
// them as distinct types stops a district id from silently flowing into a
// medicine lookup.
package domain

import (
	"fmt"
	"strings"
)

// TransferID identifies one shipment of a single medicine between two
// districts. The canonical form is "TXN-" followed by twelve uppercase hex
// characters; it is printed on waybills and scanned in the field, so it stays
// a string rather than a UUID.
type TransferID string

// TransferIDPrefix is the constant prefix of every generated transfer id.
const TransferIDPrefix = "TXN-"

// ParseTransferID validates the canonical transfer id form.
func ParseTransferID(s string) (TransferID, error) {
	if !strings.HasPrefix(s, TransferIDPrefix) || len(s) <= len(TransferIDPrefix) {
		return "", fmt.Errorf("invalid transfer id %q", s)
	}
	return TransferID(s), nil
}

func (id TransferID) String() string { return string(id) }

// IsZero reports whether the id is unset.
func (id TransferID) IsZero() bool { return id == "" }

// DistrictID references a district row in the catalog. Districts are seeded
// reference data keyed by short human-assigned codes.
type DistrictID string

func (id DistrictID) String() string { return string(id) }

// MedicineID references a medicine row in the catalog.
type MedicineID string

func (id MedicineID) String() string { return string(id) }
