package verification

import (
	"bytes"
	"regexp"
	"strings"

	"docvault/backend/pkg/security"
)

// metadataWindow bounds how much of the file metadata extraction reads.
const metadataWindow = 128 * 1024

// exifScanLimit bounds how far into the APP1 segment editor signatures are
// searched.
const exifScanLimit = 2000

var (
	producerRe     = regexp.MustCompile(`/Producer\s*\(([^)]*)\)`)
	creatorRe      = regexp.MustCompile(`/Creator\s*\(([^)]*)\)`)
	modDateRe      = regexp.MustCompile(`/ModDate\s*\(([^)]*)\)`)
	creationDateRe = regexp.MustCompile(`/CreationDate\s*\(([^)]*)\)`)
)

// knownEditors are raster/vector editing tool signatures searched for in
// image EXIF data and PDF producer/creator fields.
var knownEditors = []string{
	"Adobe Photoshop",
	"GIMP",
	"Canva",
	"Affinity Photo",
	"Pixelmator",
	"Inkscape",
	"CorelDRAW",
	"Paint.NET",
	"Photopea",
}

// ExtractMetadata parses format-specific metadata from a bounded window of
// the file. It never fails; fields it cannot find are left empty.
func ExtractMetadata(mimeType string, content []byte) DocumentMetadata {
	window := content
	if len(window) > metadataWindow {
		window = window[:metadataWindow]
	}

	switch mimeType {
	case "application/pdf":
		return extractPDFMetadata(content, window)
	case "image/jpeg", "image/jpg":
		return extractJPEGMetadata(content)
	default:
		return DocumentMetadata{}
	}
}

func extractPDFMetadata(full, window []byte) DocumentMetadata {
	text := strings.ToValidUTF8(string(window), "")

	meta := DocumentMetadata{
		Producer:     firstGroup(producerRe, text),
		Creator:      firstGroup(creatorRe, text),
		ModDate:      firstGroup(modDateRe, text),
		CreationDate: firstGroup(creationDateRe, text),
	}

	// Structural flags come from the whole file: %%EOF markers sit at the
	// end, and more than one of them indicates an incremental save.
	meta.IncrementalSave = bytes.Count(full, []byte("%%EOF")) > 1
	meta.HasAnnotations = bytes.Contains(full, []byte("/Annot"))
	meta.HasAcroForm = bytes.Contains(full, []byte("/AcroForm"))

	if sigs := security.DetectPDFSignatures(full); len(sigs) > 0 {
		meta.HasSignature = true
		meta.SignerName = sigs[0].SignerName
	}

	if editor := matchEditor(meta.Producer + " " + meta.Creator); editor != "" {
		meta.EditorSoftware = editor
	}
	return meta
}

// extractJPEGMetadata locates the EXIF APP1 segment by walking the 2-byte
// JPEG markers from offset 2, then searches the start of that segment for
// known editor signatures.
func extractJPEGMetadata(content []byte) DocumentMetadata {
	var meta DocumentMetadata

	offset := 2
	for offset+4 <= len(content) {
		if content[offset] != 0xFF {
			break
		}
		marker := content[offset+1]
		length := int(content[offset+2])<<8 | int(content[offset+3])
		if length < 2 {
			break
		}
		if marker == 0xE1 { // APP1 (EXIF)
			end := offset + 2 + length
			if end > len(content) {
				end = len(content)
			}
			segment := content[offset+4 : end]
			if len(segment) > exifScanLimit {
				segment = segment[:exifScanLimit]
			}
			meta.EditorSoftware = matchEditor(string(segment))
			break
		}
		if marker == 0xDA { // start of scan, no metadata past this point
			break
		}
		offset += 2 + length
	}
	return meta
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func matchEditor(text string) string {
	lower := strings.ToLower(text)
	for _, editor := range knownEditors {
		if strings.Contains(lower, strings.ToLower(editor)) {
			return editor
		}
	}
	return ""
}
