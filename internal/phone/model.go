package phone

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxBookerNameLength is counted in characters, not bytes.
const MaxBookerNameLength = 255

// Phone is one device of the shared pool.
// BookerName and BookingTime are either both nil or both set.
type Phone struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	BookerName  *string    `json:"bookerName"`
	BookingTime *time.Time `json:"bookingTime"`
	Version     int64      `json:"-"`
}

func (p Phone) Available() bool {
	return p.BookerName == nil
}

// Result is the outcome of a successful book or return.
// Changed is false when the call was a no-op.
type Result struct {
	Phone   Phone
	Changed bool
}

// SortPhones orders by name case-insensitively, then by id.
func SortPhones(phones []Phone) {
	slices.SortStableFunc(phones, comparePhones)
}

func comparePhones(a, b Phone) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func clonePhone(p Phone) Phone {
	out := p
	if p.BookerName != nil {
		name := *p.BookerName
		out.BookerName = &name
	}
	if p.BookingTime != nil {
		ts := *p.BookingTime
		out.BookingTime = &ts
	}
	return out
}
