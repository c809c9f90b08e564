package taint

import (
	"testing"

	"cortex/internal/analysis/parse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoDetectorFlagsWeakHashImport(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("go", "auth/hash.go", parse.SecurityContext{
		Imports: []string{"crypto/md5", "fmt"},
	})
	require.Len(t, findings, 1)
	assert.Equal(t, CryptoWeakHash, findings[0].Subtype)
	assert.Equal(t, "CWE-327", findings[0].CWE)
}

func TestCryptoDetectorFlagsDeprecatedCipherAndWeakRNG(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("go", "crypto_utils.go", parse.SecurityContext{
		Imports: []string{"crypto/des", "math/rand"},
	})
	require.Len(t, findings, 2)
	var subtypes []CryptoSubtype
	for _, f := range findings {
		subtypes = append(subtypes, f.Subtype)
	}
	assert.Contains(t, subtypes, CryptoDeprecatedCipher)
	assert.Contains(t, subtypes, CryptoWeakRNG)
}

func TestCryptoDetectorFlagsHardcodedSecretLiteral(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("go", "config.go", parse.SecurityContext{
		Literals: []parse.Literal{
			{Value: "sk_live_4242424242424242_not_a_real_key_abc", Line: 12},
			{Value: "hello", Line: 20},
		},
	})
	require.Len(t, findings, 1)
	assert.Equal(t, CryptoHardcodedSecret, findings[0].Subtype)
	assert.Equal(t, 12, findings[0].Line)
}

func TestCryptoDetectorFlagsStaticZeroIV(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("go", "cipher.go", parse.SecurityContext{
		Literals: []parse.Literal{
			{Value: "00000000000000000000000000000000", Line: 7},
		},
	})
	require.Len(t, findings, 1)
	assert.Equal(t, CryptoMissingIV, findings[0].Subtype)
	assert.Equal(t, "CWE-329", findings[0].CWE)
}

func TestCryptoDetectorTrustedImportShortCircuits(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("go", "auth/password.go", parse.SecurityContext{
		Imports: []string{"golang.org/x/crypto/bcrypt"},
		Literals: []parse.Literal{
			{Value: "00000000000000000000000000000000", Line: 3},
		},
	})
	assert.Empty(t, findings)
}

func TestCryptoDetectorUnknownLanguageYieldsNoFindings(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("cobol", "legacy.cbl", parse.SecurityContext{Imports: []string{"crypto/md5"}})
	assert.Nil(t, findings)
}

func TestCryptoDetectorPythonImportRules(t *testing.T) {
	d := NewCryptoDetector(DefaultCryptoCatalogs())
	findings := d.Detect("python", "hashing.py", parse.SecurityContext{
		Imports: []string{"hashlib.md5", "Crypto.Cipher.DES"},
	})
	require.Len(t, findings, 2)
}
