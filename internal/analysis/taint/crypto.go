package taint

import (
	"fmt"
	"regexp"
	"strings"

	"cortex/internal/analysis/parse"
)

// CryptoSubtype classifies one kind of cryptographic misuse the
// detector looks for.
type CryptoSubtype string

const (
	CryptoWeakHash         CryptoSubtype = "weak_hash"
	CryptoDeprecatedCipher CryptoSubtype = "deprecated_cipher"
	CryptoHardcodedSecret  CryptoSubtype = "hardcoded_secret"
	CryptoWeakRNG          CryptoSubtype = "weak_rng"
	CryptoMissingIV        CryptoSubtype = "missing_iv"
)

// CryptoRule maps one regexp, matched against either an import path or
// a string literal depending on which list it's registered in, to a
// subtype, its CWE id, and remediation guidance.
type CryptoRule struct {
	Subtype     CryptoSubtype
	Pattern     *regexp.Regexp
	CWE         string
	Remediation string
}

// CryptoCatalog is one language's crypto pattern catalog: a
// trusted-import allowlist that short-circuits the rest of the
// catalog for a file, plus import-matched and literal-matched rule
// sets.
type CryptoCatalog struct {
	Language       string
	TrustedImports []*regexp.Regexp
	ImportRules    []CryptoRule
	LiteralRules   []CryptoRule
}

// allZeroOrRepeatedHex matches a hex string of 16, 24, or 32 hex
// digits (AES-128/192/256 key or 128-bit IV length) made of a single
// repeated nibble, the textbook static-IV-or-key-of-zeroes smell.
var allZeroOrRepeatedHex = regexp.MustCompile(repeatedNibblePattern())

// repeatedNibblePattern spells out every single-nibble run of the three
// lengths, since RE2 has no backreferences.
func repeatedNibblePattern() string {
	var alts []string
	for _, c := range "0123456789abcdef" {
		for _, n := range []int{16, 24, 32} {
			alts = append(alts, fmt.Sprintf("%c{%d}", c, n))
		}
	}
	return `(?i)^(?:` + strings.Join(alts, "|") + `)$`
}

// looksLikeSecretLiteral matches a base64-or-hex-ish literal long
// enough to plausibly be a key, token, or salt rather than prose.
// Extractive, not semantic: it has no idea whether the literal is
// actually assigned to a variable named key/iv/salt/secret, so it is
// deliberately narrow (long, high-entropy-looking charset only) to
// keep the false-positive rate down.
var looksLikeSecretLiteral = regexp.MustCompile(`^[A-Za-z0-9+/_=\-]{24,}$`)

// DefaultCryptoCatalogs returns the built-in per-language catalogs,
// covering the five crypto-misuse subtypes across the languages this
// module's parser registry supports (go, python, javascript,
// typescript, rust).
func DefaultCryptoCatalogs() map[string]*CryptoCatalog {
	return map[string]*CryptoCatalog{
		"go": {
			Language: "go",
			TrustedImports: []*regexp.Regexp{
				regexp.MustCompile(`golang\.org/x/crypto/(bcrypt|argon2|nacl|scrypt)`),
				regexp.MustCompile(`^crypto/(tls|ecdsa|ed25519|rand)$`),
			},
			ImportRules: []CryptoRule{
				{CryptoWeakHash, regexp.MustCompile(`^crypto/md5$`), "CWE-327", "Use crypto/sha256, or bcrypt/argon2 for password hashing, instead of MD5."},
				{CryptoWeakHash, regexp.MustCompile(`^crypto/sha1$`), "CWE-327", "Use crypto/sha256 instead of SHA-1 for security-sensitive hashing."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`^crypto/des$`), "CWE-327", "Replace DES with AES-GCM (crypto/aes + crypto/cipher)."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`^crypto/rc4$`), "CWE-327", "Replace RC4 with AES-GCM or ChaCha20-Poly1305."},
				{CryptoWeakRNG, regexp.MustCompile(`^math/rand$`), "CWE-338", "Use crypto/rand for any security-sensitive randomness."},
			},
			LiteralRules: defaultLiteralRules(),
		},
		"python": {
			Language: "python",
			TrustedImports: []*regexp.Regexp{
				regexp.MustCompile(`^(bcrypt|argon2|nacl|cryptography\.fernet)`),
			},
			ImportRules: []CryptoRule{
				{CryptoWeakHash, regexp.MustCompile(`Crypto\.Hash\.(MD5|SHA1)|hashlib\.md5|hashlib\.sha1`), "CWE-327", "Use hashlib.sha256, or bcrypt/argon2 for password hashing."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`Crypto\.Cipher\.(DES|ARC4)`), "CWE-327", "Replace DES/RC4 with AES-GCM via cryptography.hazmat or PyNaCl."},
				{CryptoWeakRNG, regexp.MustCompile(`^random$`), "CWE-338", "Use the secrets module or os.urandom for security-sensitive randomness."},
			},
			LiteralRules: defaultLiteralRules(),
		},
		"javascript": {
			Language: "javascript",
			TrustedImports: []*regexp.Regexp{
				regexp.MustCompile(`^(bcrypt|bcryptjs|argon2|tweetnacl)`),
			},
			ImportRules: []CryptoRule{
				{CryptoWeakHash, regexp.MustCompile(`crypto-js/(md5|sha1)`), "CWE-327", "Use crypto-js/sha256, or bcrypt/argon2 for password hashing."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`(^|/)(des|rc4)(\.js)?$`), "CWE-327", "Replace DES/RC4 with AES-GCM (Node's crypto module or a vetted library)."},
			},
			LiteralRules: defaultLiteralRules(),
		},
		"typescript": {
			Language: "typescript",
			TrustedImports: []*regexp.Regexp{
				regexp.MustCompile(`^(bcrypt|bcryptjs|argon2|tweetnacl)`),
			},
			ImportRules: []CryptoRule{
				{CryptoWeakHash, regexp.MustCompile(`crypto-js/(md5|sha1)`), "CWE-327", "Use crypto-js/sha256, or bcrypt/argon2 for password hashing."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`(^|/)(des|rc4)(\.js)?$`), "CWE-327", "Replace DES/RC4 with AES-GCM (Node's crypto module or a vetted library)."},
			},
			LiteralRules: defaultLiteralRules(),
		},
		"rust": {
			Language: "rust",
			TrustedImports: []*regexp.Regexp{
				regexp.MustCompile(`^(bcrypt|argon2|ring|sodiumoxide)`),
			},
			ImportRules: []CryptoRule{
				{CryptoWeakHash, regexp.MustCompile(`^(md-5|sha1)`), "CWE-327", "Use the sha2 crate, or bcrypt/argon2 for password hashing."},
				{CryptoDeprecatedCipher, regexp.MustCompile(`^(des|rc4)`), "CWE-327", "Replace DES/RC4 with an AES-GCM implementation from the ring or aes-gcm crate."},
			},
			LiteralRules: defaultLiteralRules(),
		},
	}
}

func defaultLiteralRules() []CryptoRule {
	return []CryptoRule{
		{CryptoMissingIV, allZeroOrRepeatedHex, "CWE-329", "Generate a fresh random IV/key per operation instead of a fixed or all-zero value."},
		{CryptoHardcodedSecret, looksLikeSecretLiteral, "CWE-798", "Load keys, tokens, and salts from a secret manager or environment variable, never a literal in source."},
	}
}

// CryptoFinding is one reported crypto-misuse location.
type CryptoFinding struct {
	File        string
	Line        int
	Subtype     CryptoSubtype
	Detail      string
	CWE         string
	Remediation string
}

// CryptoDetector runs a per-language CryptoCatalog over a file's
// AST-extracted imports and string literals. It never regexes raw
// source: parse.Registry.ExtractSecurityContext has already reduced
// the file to the two surfaces (imports, literals) the catalog
// patterns are written against, following the same
// extract-then-match-on-the-extracted-surface discipline as
// pattern.LiteralMatcher.
type CryptoDetector struct {
	catalogs map[string]*CryptoCatalog
}

// NewCryptoDetector builds a detector from the given per-language
// catalogs (DefaultCryptoCatalogs for the built-in set).
func NewCryptoDetector(catalogs map[string]*CryptoCatalog) *CryptoDetector {
	return &CryptoDetector{catalogs: catalogs}
}

// Detect scans one file's extracted security context against its
// language's catalog. A file importing any of the language's trusted
// crypto libraries short-circuits: it's presumed written by someone
// already being deliberate about crypto, so no rule of the catalog,
// import-matched or literal-matched, is run for it. Each literal is
// reported at most once, under the first literal rule it matches.
func (d *CryptoDetector) Detect(lang, path string, ctx parse.SecurityContext) []CryptoFinding {
	catalog, ok := d.catalogs[lang]
	if !ok {
		return nil
	}

	for _, imp := range ctx.Imports {
		for _, trusted := range catalog.TrustedImports {
			if trusted.MatchString(imp) {
				return nil
			}
		}
	}

	var findings []CryptoFinding
	for _, imp := range ctx.Imports {
		for _, rule := range catalog.ImportRules {
			if rule.Pattern.MatchString(imp) {
				findings = append(findings, CryptoFinding{
					File: path, Subtype: rule.Subtype, Detail: imp,
					CWE: rule.CWE, Remediation: rule.Remediation,
				})
			}
		}
	}
	for _, lit := range ctx.Literals {
		for _, rule := range catalog.LiteralRules {
			if rule.Pattern.MatchString(lit.Value) {
				findings = append(findings, CryptoFinding{
					File: path, Line: lit.Line, Subtype: rule.Subtype, Detail: lit.Value,
					CWE: rule.CWE, Remediation: rule.Remediation,
				})
				break
			}
		}
	}
	return findings
}
