package urlcheck

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrInsecureScheme = errors.New("only HTTPS URLs are allowed, got http://")
	ErrInvalidFormat  = errors.New("invalid URL format")
	ErrPrivateAddress = errors.New("private/internal URLs are not allowed")
)

// Internal-only domain suffixes that must never be fetched.
var blockedSuffixes = []string{
	".local",
	".internal",
	".corp",
	".lan",
	".home",
	".intranet",
}

// Cloud metadata endpoints.
var blockedHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
}

// Normalize canonicalizes a raw user-entered string into a strict HTTPS
// URL. Bare domains are upgraded to https://; plain http:// is rejected
// outright rather than silently upgraded.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(raw, "http://") {
		return "", ErrInsecureScheme
	}

	if !strings.HasPrefix(raw, "https://") {
		// Looks like a bare domain: has a dot, no embedded whitespace.
		if strings.Contains(raw, ".") && !strings.ContainsAny(raw, " \t") {
			raw = "https://" + raw
		} else {
			return "", ErrInvalidFormat
		}
	}

	if _, err := url.Parse(raw); err != nil {
		return "", ErrInvalidFormat
	}

	return raw, nil
}

// Validator decides whether an outbound fetch to a URL is permitted.
// Every network call in the engine must pass through one of these first.
type Validator interface {
	Validate(rawURL string) error
}

// SSRFValidator rejects non-HTTPS schemes and any hostname that resolves
// into loopback, private, link-local, or cloud-metadata address space.
type SSRFValidator struct{}

func NewSSRFValidator() *SSRFValidator {
	return &SSRFValidator{}
}

func (v *SSRFValidator) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidFormat
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrPrivateAddress, parsed.Scheme)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return ErrInvalidFormat
	}

	if blockedHosts[hostname] {
		return fmt.Errorf("%w: metadata endpoint %s", ErrPrivateAddress, hostname)
	}

	if hostname == "localhost" {
		return fmt.Errorf("%w: loopback host", ErrPrivateAddress)
	}

	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return fmt.Errorf("%w: internal domain suffix %s", ErrPrivateAddress, suffix)
		}
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: address %s", ErrPrivateAddress, hostname)
		}
	} else if blockedByPrefix(hostname) {
		return fmt.Errorf("%w: address %s", ErrPrivateAddress, hostname)
	}

	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	// IPv6 unique-local fc00::/7.
	if ip6 := ip.To16(); ip6 != nil && ip.To4() == nil {
		if ip6[0]&0xfe == 0xfc {
			return true
		}
	}

	return false
}

// blockedByPrefix catches dotted hostnames that did not parse as a full
// IP but still start like one (e.g. truncated private ranges).
func blockedByPrefix(hostname string) bool {
	prefixes := []string{"127.", "10.", "192.168.", "169.254.", "0."}
	for _, p := range prefixes {
		if strings.HasPrefix(hostname, p) {
			return true
		}
	}

	// 172.16.0.0/12
	if strings.HasPrefix(hostname, "172.") {
		rest := strings.TrimPrefix(hostname, "172.")
		if idx := strings.Index(rest, "."); idx > 0 {
			octet := rest[:idx]
			if len(octet) == 2 && octet >= "16" && octet <= "31" {
				return true
			}
		}
	}

	return false
}
