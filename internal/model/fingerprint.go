package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is the stable cache key for a posting, derived from its content.
// Two postings with the same fingerprint are treated as analytically identical.
type Fingerprint string

// ComputeFingerprint hashes the normalized title, company and description.
// Normalization lowercases and collapses runs of whitespace so trivial
// formatting differences between scrapes of the same listing hash alike.
func ComputeFingerprint(p JobPosting) Fingerprint {
	h := sha256.New()
	h.Write([]byte(normalize(p.Title)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalize(p.Company)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalize(p.Description)))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Short returns a truncated form for logs and list views.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}
