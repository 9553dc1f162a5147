package phone

import "github.com/google/uuid"

// DefaultCatalog returns the phones seeded by migration 0002, all unbooked.
func DefaultCatalog() []Phone {
	seed := []struct {
		id   string
		name string
	}{
		{"2524e7a8-e876-11ed-a05b-0242ac120003", "Samsung Galaxy S9"},
		{"2524e910-e876-11ed-a05b-0242ac120003", "Samsung Galaxy S8"},
		{"2524ec4e-e876-11ed-a05b-0242ac120003", "Samsung Galaxy S8"},
		{"2524edd4-e876-11ed-a05b-0242ac120003", "Motorola Nexus 6"},
		{"2524ef46-e876-11ed-a05b-0242ac120003", "Oneplus 9"},
		{"2524f0ae-e876-11ed-a05b-0242ac120003", "Apple iPhone 13"},
		{"2524f216-e876-11ed-a05b-0242ac120003", "Apple iPhone 12"},
		{"2524f734-e876-11ed-a05b-0242ac120003", "Apple iPhone 11"},
		{"2524f8e2-e876-11ed-a05b-0242ac120003", "iPhone X"},
		{"2524fa54-e876-11ed-a05b-0242ac120003", "Nokia 3310"},
	}

	phones := make([]Phone, 0, len(seed))
	for _, s := range seed {
		phones = append(phones, Phone{ID: uuid.MustParse(s.id), Name: s.name, Version: 1})
	}
	return phones
}
