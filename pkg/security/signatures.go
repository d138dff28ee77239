// Package security detects embedded digital signatures in PDF documents.
package security

import (
	"bytes"
	"regexp"
)

// SignatureInfo describes one signature dictionary found in a PDF. Detection
// is structural only; cryptographic validation of the signature bytes is the
// issuer's concern, not the vault's.
type SignatureInfo struct {
	SignerName string `json:"signerName,omitempty"`
	SubFilter  string `json:"subFilter,omitempty"`
	// Covered is true when the signature carries a ByteRange, meaning it
	// commits to a specific span of the document.
	Covered bool `json:"covered"`
}

var (
	sigDictPattern   = regexp.MustCompile(`/Type\s*/Sig\b`)
	subFilterPattern = regexp.MustCompile(`/SubFilter\s*/([A-Za-z0-9.#]+)`)
	signerPattern    = regexp.MustCompile(`/Name\s*\(([^)]*)\)`)
)

var byteRangeToken = []byte("/ByteRange")

// DetectPDFSignatures scans raw PDF bytes for signature dictionaries. A
// document with no signatures returns nil.
func DetectPDFSignatures(content []byte) []SignatureInfo {
	var sigs []SignatureInfo
	for _, loc := range sigDictPattern.FindAllIndex(content, -1) {
		// Inspect the dictionary around the /Type /Sig entry; signature
		// dictionaries are small.
		start := loc[0] - 256
		if start < 0 {
			start = 0
		}
		end := loc[1] + 1024
		if end > len(content) {
			end = len(content)
		}
		window := content[start:end]

		info := SignatureInfo{Covered: bytes.Contains(window, byteRangeToken)}
		if m := subFilterPattern.FindSubmatch(window); m != nil {
			info.SubFilter = string(m[1])
		}
		if m := signerPattern.FindSubmatch(window); m != nil {
			info.SignerName = string(m[1])
		}
		sigs = append(sigs, info)
	}
	return sigs
}
