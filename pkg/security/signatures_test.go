package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signedPDF = `%PDF-1.7
12 0 obj
<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached
/ByteRange [0 840 960 240]
/Name (Issuing Authority)
/M (D:20260115093000Z) >>
endobj
%%EOF`

func TestDetectPDFSignatures(t *testing.T) {
	sigs := DetectPDFSignatures([]byte(signedPDF))

	require.Len(t, sigs, 1)
	assert.Equal(t, "Issuing Authority", sigs[0].SignerName)
	assert.Equal(t, "adbe.pkcs7.detached", sigs[0].SubFilter)
	assert.True(t, sigs[0].Covered)
}

func TestDetectPDFSignaturesNone(t *testing.T) {
	assert.Nil(t, DetectPDFSignatures([]byte("%PDF-1.4\n1 0 obj\nendobj\n%%EOF")))
	assert.Nil(t, DetectPDFSignatures(nil))
}

func TestDetectPDFSignaturesWithoutByteRange(t *testing.T) {
	content := []byte("<< /Type /Sig /SubFilter /ETSI.CAdES.detached >>")
	sigs := DetectPDFSignatures(content)

	require.Len(t, sigs, 1)
	assert.False(t, sigs[0].Covered)
	assert.Empty(t, sigs[0].SignerName)
}
