package model

// MaxBoothsPerUser caps the booths one user may hold against one exhibition,
// across both booth types.
const MaxBoothsPerUser = 6

type BoothType string

const (
	BoothSmall BoothType = "small"
	BoothBig   BoothType = "big"
)

var BoothTypes = []BoothType{BoothSmall, BoothBig}

func (b BoothType) Valid() bool {
	return b == BoothSmall || b == BoothBig
}

func (b BoothType) String() string {
	return string(b)
}

// QuotaField is the document field holding the remaining inventory for b.
func (b BoothType) QuotaField() string {
	switch b {
	case BoothSmall:
		return "small_booth_quota"
	case BoothBig:
		return "big_booth_quota"
	}
	return ""
}

// WithinBoothCap reports whether a user already holding existing booths on an
// exhibition may hold candidate more.
func WithinBoothCap(existing, candidate int) bool {
	return existing+candidate <= MaxBoothsPerUser
}
