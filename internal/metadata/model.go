package metadata

// Unknown stands in for any band or technology the source could not tell us.
const Unknown = "<unknown>"

// Record is one device entry as returned by Fonoapi. Only the band fields are
// used; the rest are kept for logging.
type Record struct {
	DeviceName *string `json:"DeviceName"`
	Brand      *string `json:"Brand"`
	CPU        *string `json:"cpu"`
	Status     *string `json:"status"`
	Dimensions *string `json:"dimensions"`
	Band2G     *string `json:"_2g_bands"`
	Band3G     *string `json:"_3g_bands"`
	Band4G     *string `json:"_4g_bands"`
}

// Metadata is the immutable per-name value served by the cache.
type Metadata struct {
	Technology string `json:"technology"`
	Band2G     string `json:"_2g"`
	Band3G     string `json:"_3g"`
	Band4G     string `json:"_4g"`
}

// Default is served whenever the source is disabled or fails.
func Default() Metadata {
	return Metadata{
		Technology: Unknown,
		Band2G:     Unknown,
		Band3G:     Unknown,
		Band4G:     Unknown,
	}
}

// FromRecord normalizes missing bands to Unknown and derives the technology
// from the newest generation that has a known band.
func FromRecord(r Record) Metadata {
	md := Metadata{
		Band2G: band(r.Band2G),
		Band3G: band(r.Band3G),
		Band4G: band(r.Band4G),
	}
	switch {
	case md.Band4G != Unknown:
		md.Technology = "4G"
	case md.Band3G != Unknown:
		md.Technology = "3G"
	case md.Band2G != Unknown:
		md.Technology = "2G"
	default:
		md.Technology = Unknown
	}
	return md
}

func band(v *string) string {
	if v == nil {
		return Unknown
	}
	return *v
}
