package domain

// IndicatorType enumerates the kinds of threat artifacts the pipeline tracks.
type IndicatorType string

const (
	TypeIP      IndicatorType = "ip"
	TypeDomain  IndicatorType = "domain"
	TypeHash    IndicatorType = "hash"
	TypeURL     IndicatorType = "url"
	TypeSoarURL IndicatorType = "soar-url"
)

// AllIndicatorTypes lists every type a data source may declare interest in.
var AllIndicatorTypes = []IndicatorType{TypeIP, TypeDomain, TypeHash, TypeURL, TypeSoarURL}

func (t IndicatorType) IsValid() bool {
	for _, valid := range AllIndicatorTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// HashType identifies the digest algorithm behind a hash indicator.
type HashType string

const (
	HashMD5    HashType = "md5"
	HashSHA1   HashType = "sha1"
	HashSHA256 HashType = "sha256"
	HashSHA512 HashType = "sha512"
)
