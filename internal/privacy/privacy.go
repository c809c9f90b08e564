// Package privacy implements the Privacy Engine: scan
// memory content for secrets/credentials/PII patterns and redact them
// idempotently (running redaction twice produces the same output as
// running it once). Pattern table and idempotent-replace approach are
// grounded directly on a sanitizeDescriptor secretPatterns idiom
// (internal/store/reflection_utils.go), extended with a few more
// credential shapes the Drift Analysis Core's taint/crypto components
// also care about (AWS keys, private key blocks).
package privacy

import (
	"regexp"
	"strings"

	"cortex/internal/config"
)

var secretPatterns = []struct {
	name        string
	replacement string
	pattern     *regexp.Regexp
}{
	{"api_key", "${1}[redacted]", regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\s,]+)`)},
	{"secret", "${1}[redacted]", regexp.MustCompile(`(?i)(secret\s*[:=]\s*)([^\s,]+)`)},
	{"token", "${1}[redacted]", regexp.MustCompile(`(?i)(token\s*[:=]\s*)([^\s,]+)`)},
	{"password", "${1}[redacted]", regexp.MustCompile(`(?i)(password\s*[:=]\s*)([^\s,]+)`)},
	{"bearer", "bearer [redacted]", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`)},
	{"google_api_key", "[redacted]", regexp.MustCompile(`AIza[0-9A-Za-z_-]{10,}`)},
	{"openai_key", "[redacted]", regexp.MustCompile(`sk-[A-Za-z0-9]{10,}`)},
	{"aws_access_key", "[redacted]", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"private_key_block", "[redacted]", regexp.MustCompile(`-----BEGIN [A-Z ]+PRIVATE KEY-----[\s\S]*?-----END [A-Z ]+PRIVATE KEY-----`)},
	{"email", "[redacted-email]", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
}

// Finding records one redaction applied during a scan.
type Finding struct {
	Kind  string
	Count int
}

// Engine scans and redacts memory content.
type Engine struct {
	cfg config.PrivacyConfig
}

// New builds a privacy Engine.
func New(cfg config.PrivacyConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Redact replaces every recognized secret/PII pattern in text and
// reports what it found. Redact is idempotent: Redact(Redact(x)) ==
// Redact(x), because every replacement is fixed text that a second
// pass either does not match or replaces with the same text
// ("password=[redacted]" maps to itself). A second pass may still
// report findings.
func (e *Engine) Redact(text string) (string, []Finding) {
	var findings []Finding
	out := text
	for _, p := range secretPatterns {
		matches := p.pattern.FindAllString(out, -1)
		if len(matches) == 0 {
			continue
		}
		out = p.pattern.ReplaceAllString(out, p.replacement)
		findings = append(findings, Finding{Kind: p.name, Count: len(matches)})
	}
	return out, findings
}

// IsTestContext reports whether a source file path looks like test
// code, used to discount privacy-finding severity in test fixtures:
// synthetic credentials in _test.go files are lower risk.
func IsTestContext(sourceFile string) bool {
	lower := strings.ToLower(sourceFile)
	return strings.HasSuffix(lower, "_test.go") ||
		strings.Contains(lower, "/testdata/") ||
		strings.Contains(lower, "/fixtures/")
}

// Severity scales a raw finding count down for test-context sources,
// per cfg.TestContextDiscount.
func (e *Engine) Severity(count int, sourceFile string) float64 {
	severity := float64(count)
	if IsTestContext(sourceFile) {
		severity *= e.cfg.TestContextDiscount
	}
	return severity
}
