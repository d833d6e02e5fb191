package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Sternrassler/insight-engine/pkg/provider"
	"golang.org/x/text/unicode/norm"
)

// keyPrefix namespaces result keys in shared backends.
const keyPrefix = "insight"

// Key identifies a cached merged result.
type Key struct {
	// AnalysisType is the requested analysis.
	AnalysisType provider.AnalysisType

	// Fingerprint is the hex SHA-256 of the analysis type and normalized text.
	Fingerprint string
}

// NewKey derives the key for an analysis of text.
func NewKey(analysisType provider.AnalysisType, text string) Key {
	return Key{
		AnalysisType: analysisType,
		Fingerprint:  Fingerprint(analysisType, text),
	}
}

// String generates the storage key.
// Format: insight:<analysisType>:<fingerprint>
//
// Example:
//
//	insight:sentiment:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
func (k Key) String() string {
	return strings.Join([]string{keyPrefix, string(k.AnalysisType), k.Fingerprint}, ":")
}

// Fingerprint hashes the analysis type and the normalized text. The whole
// text takes part in the hash, so texts sharing a long prefix never collide.
func Fingerprint(analysisType provider.AnalysisType, text string) string {
	h := sha256.New()
	h.Write([]byte(analysisType))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Normalize trims surrounding whitespace and applies Unicode NFC so that
// canonically equivalent texts share a fingerprint.
func Normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
