package verification

import "bytes"

// magicPrefixes maps accepted MIME types to their magic-byte prefixes. A file
// passes only if its declared type is listed here and one prefix matches the
// leading bytes exactly.
var magicPrefixes = map[string][][]byte{
	"application/pdf": {{0x25, 0x50, 0x44, 0x46}},
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/jpg":       {{0xFF, 0xD8, 0xFF}},
	"image/png":       {{0x89, 0x50, 0x4E, 0x47}},
	"image/webp":      {{0x52, 0x49, 0x46, 0x46}},
	"application/msword": {
		{0xD0, 0xCF, 0x11, 0xE0},
	},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {
		{0x50, 0x4B, 0x03, 0x04},
	},
}

// VerifySignature checks a file's true binary type against its declared MIME
// type. An unrecognized MIME type or a non-matching signature is a hard
// rejection, not a warning: either the file is corrupted or the type is
// deliberately spoofed.
func VerifySignature(mimeType string, leading []byte) bool {
	prefixes, ok := magicPrefixes[mimeType]
	if !ok {
		return false
	}
	for _, prefix := range prefixes {
		if len(leading) >= len(prefix) && bytes.Equal(leading[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}
