package store

// PrivacyLevel classifies how widely a piece of memory may be shared.
type PrivacyLevel string

const (
	PrivacyPublic       PrivacyLevel = "PUBLIC"
	PrivacyInternal     PrivacyLevel = "INTERNAL"
	PrivacyConfidential PrivacyLevel = "CONFIDENTIAL"
	PrivacyLocalOnly    PrivacyLevel = "LOCAL_ONLY"
)

// ParsePrivacyLevel maps a stored string to a PrivacyLevel.
// Unknown values map to CONFIDENTIAL so that malformed rows are
// never treated as shareable.
func ParsePrivacyLevel(s string) PrivacyLevel {
	switch PrivacyLevel(s) {
	case PrivacyPublic, PrivacyInternal, PrivacyConfidential, PrivacyLocalOnly:
		return PrivacyLevel(s)
	default:
		return PrivacyConfidential
	}
}

// CacheSafe reports whether content at this level may be promoted to the
// answer cache. Confidential and local-only data never enters the cache.
func (p PrivacyLevel) CacheSafe() bool {
	return p == PrivacyPublic || p == PrivacyInternal
}
