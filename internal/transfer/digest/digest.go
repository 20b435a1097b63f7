// Package digest produces the deterministic identifiers and integrity digests
// the custody protocol is built on. Every function is pure: no state, no I/O,
// safe from any number of goroutines.
//
// The digests are tamper-evidence, not authentication: they prove that what
// was recorded at each handoff has not changed since, not that a particular
// party recorded it.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	id "medtrace/pkg/domain"
)

// SignedItem is the portion of a batch item that participates in a party
// digest: the scannable code and the quantity it vouches for.
type SignedItem struct {
	QR  string `json:"qr"`
	Qty int    `json:"qty"`
}

// signPayload is the canonical encoding hashed by Sign. Field order is fixed
// by the struct; items are sorted by QR code before encoding.
type signPayload struct {
	PartyID    string        `json:"party_id"`
	TransferID id.TransferID `json:"transfer_id"`
	Items      []SignedItem  `json:"items"`
	Timestamp  string        `json:"timestamp"`
	PhotoHash  string        `json:"photo_hash"`
}

// NewTransferID returns a fresh collision-resistant transfer id, short enough
// to read over a radio and scan off a waybill.
func NewTransferID() id.TransferID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id.TransferID(id.TransferIDPrefix + strings.ToUpper(raw[:12]))
}

// NewBatchQRCode derives a unique code for a medicine batch. The timestamp is
// part of the hashed payload, so identical logical inputs at different times
// never collide.
func NewBatchQRCode(medicineID id.MedicineID, batchID string, quantity int, ts time.Time) string {
	data := fmt.Sprintf("%s:%s:%d:%s", medicineID, batchID, quantity, ts.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(data))
	return "QR-" + strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}

// Sign produces a party's content digest over the canonical encoding of what
// changed hands. Items are copied and sorted by QR code before encoding, so
// the digest is independent of collection order. Any change to party,
// transfer id, item set, quantities, or timestamp changes the digest.
func Sign(partyID string, transferID id.TransferID, items []SignedItem, ts time.Time, photoDigest string) string {
	sorted := make([]SignedItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].QR < sorted[j].QR })

	payload, err := json.Marshal(signPayload{
		PartyID:    partyID,
		TransferID: transferID,
		Items:      sorted,
		Timestamp:  ts.UTC().Format(time.RFC3339Nano),
		PhotoHash:  photoDigest,
	})
	if err != nil {
		// Marshalling a struct of strings and ints cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Combine folds the three party digests into the final chain-of-custody
// digest. Order is significant: sender, then transporter, then receiver.
func Combine(senderDigest, transporterDigest, receiverDigest string) string {
	combined := senderDigest + ":" + transporterDigest + ":" + receiverDigest
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// DigestPhoto fingerprints raw photo evidence so the photo itself never needs
// to be stored alongside the transfer.
func DigestPhoto(photo []byte) string {
	sum := sha256.Sum256(photo)
	return hex.EncodeToString(sum[:])
}
