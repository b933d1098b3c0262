package models

import "fmt"

// Namespace prefixes for the four limiters. Each Limiter owns exactly one
// prefix, so buckets from different tiers never collide.
const (
	KeyPrefixGeneral     = "general"
	KeyPrefixPhotos      = "photos"
	KeyPrefixLoginIP     = "login:ip"
	KeyPrefixLoginUserIP = "login:user_ip"
)

// Key builds the storage key for a subject within a limiter's namespace.
func Key(prefix, subject string) string {
	return fmt.Sprintf("%s:%s", prefix, subject)
}

// LoginUserIPSubject builds the composite subject tracking consecutive
// failures per username and source IP.
//
// The segments are joined by a plain underscore. A username containing an
// underscore can therefore collide with another username+IP pair (e.g.
// "bob_1" @ 2.3.4.5 vs "bob" @ 1_2.3.4.5-shaped inputs). This matches the
// historical key format; callers relying on these keys already exist, so the
// format is pinned by tests rather than escaped here.
func LoginUserIPSubject(username, ip string) string {
	return fmt.Sprintf("%s_%s", username, ip)
}
