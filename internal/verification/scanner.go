package verification

import "strings"

// scanWindow bounds how much of the file the content scanner decodes.
// Payloads of this class sit near the start of the structure for the
// formats we accept, so full-file scanning buys nothing.
const scanWindow = 64 * 1024

// ScanResult reports whether a byte window is free of embedded active
// content. Reason names the matched pattern family when unsafe.
type ScanResult struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

type patternFamily struct {
	reason   string
	patterns []string
}

// Ordered: first match wins and scanning stops.
var patternFamilies = []patternFamily{
	{
		reason:   "script injection",
		patterns: []string{"<script", "eval(", "onerror=", "onload=", "onclick="},
	},
	{
		reason:   "embedded PDF action",
		patterns: []string{"/JavaScript", "/JS"},
	},
	{
		reason:   "DOM access primitive",
		patterns: []string{"document.cookie", "document.write", "window.location"},
	},
	{
		reason:   "SQL injection pattern",
		patterns: []string{"UNION SELECT", "DROP TABLE", "INSERT INTO", "SELECT * FROM"},
	},
}

// scannableTypes lists formats capable of embedding active content.
var scannableTypes = map[string]bool{
	"application/pdf": true,
}

// ScanContent tests a bounded prefix of the file, decoded permissively as
// text, against the known malicious pattern families. Formats that cannot
// embed active content always pass.
func ScanContent(mimeType string, content []byte) ScanResult {
	if !scannableTypes[mimeType] {
		return ScanResult{Safe: true}
	}

	window := content
	if len(window) > scanWindow {
		window = window[:scanWindow]
	}
	text := strings.ToValidUTF8(string(window), "")
	lower := strings.ToLower(text)

	upper := strings.ToUpper(text)
	for _, family := range patternFamilies {
		for _, p := range family.patterns {
			var hit bool
			switch {
			case strings.HasPrefix(p, "/"):
				// PDF name objects are case-sensitive.
				hit = strings.Contains(text, p)
			case p == strings.ToUpper(p):
				// SQL tokens match case-insensitively.
				hit = strings.Contains(upper, p)
			default:
				hit = strings.Contains(lower, p)
			}
			if hit {
				return ScanResult{Safe: false, Reason: family.reason}
			}
		}
	}
	return ScanResult{Safe: true}
}
