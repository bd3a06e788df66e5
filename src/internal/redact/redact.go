// FILE: src/internal/redact/redact.go
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"teralog/src/internal/core"

	"github.com/lixenwraith/log"
)

// secretPatterns match common secret shapes in free text. Each pattern
// captures the key/prefix in group 1 and swallows the value; replacement
// keeps the prefix and substitutes the sentinel for the value.
var secretPatterns = []string{
	// password=xxx, password: xxx, "password": "xxx"
	`(?i)(password\s*[=:]\s*)[^\s,;"'}\]]+`,
	// api_key=xxx, api-key=xxx, apikey=xxx
	`(?i)(api[_-]?key\s*[=:]\s*)[^\s,;"'}\]]+`,
	// secret_key=xxx, secret-key=xxx, secretkey=xxx
	`(?i)(secret[_-]?key\s*[=:]\s*)[^\s,;"'}\]]+`,
	// access_key=xxx, access-key=xxx
	`(?i)(access[_-]?key\s*[=:]\s*)[^\s,;"'}\]]+`,
	// token=xxx, auth_token=xxx
	`(?i)((?:auth[_-]?)?token\s*[=:]\s*)[^\s,;"'}\]]+`,
	// Authorization: Bearer xxx, Authorization: Basic xxx
	`(?i)(authorization\s*[=:]\s*(?:bearer|basic|token)\s+)[^\s,;"'}\]]+`,
	// Bearer xxx (standalone)
	`(?i)(bearer\s+)[A-Za-z0-9_\-.]+`,
	// AWS_SECRET_ACCESS_KEY=xxx, AWS_ACCESS_KEY_ID=xxx
	`(?i)(AWS_[A-Z_]*KEY[_ID]*\s*[=:]\s*)[^\s,;"'}\]]+`,
	// private_key=xxx, private-key=xxx
	`(?i)(private[_-]?key\s*[=:]\s*)[^\s,;"'}\]]+`,
	// credential=xxx, credentials=xxx
	`(?i)(credentials?\s*[=:]\s*)[^\s,;"'}\]]+`,
	// connection_string=xxx (often has DB passwords)
	`(?i)(connection[_-]?string\s*[=:]\s*)[^\s,;"'}\]]+`,
	// database_url=xxx, db_url=xxx
	`(?i)((?:database|db)[_-]?url\s*[=:]\s*)[^\s,;"'}\]]+`,
	// ssn=xxx, social_security=xxx
	`(?i)((?:ssn|social[_-]?security)\s*[=:]\s*)[^\s,;"'}\]]+`,
	// credit_card=xxx, card_number=xxx
	`(?i)((?:credit[_-]?card|card[_-]?number)\s*[=:]\s*)[^\s,;"'}\]]+`,
}

// sensitiveFieldNames are attribute keys whose values are never sent,
// regardless of content. Matching is on the lower-cased, trimmed key.
var sensitiveFieldNames = map[string]struct{}{
	"password": {}, "passwd": {}, "pwd": {},
	"secret": {}, "secret_key": {}, "secretkey": {}, "secret-key": {},
	"api_key": {}, "apikey": {}, "api-key": {},
	"access_key": {}, "accesskey": {}, "access-key": {},
	"private_key": {}, "privatekey": {}, "private-key": {},
	"token": {}, "auth_token": {}, "access_token": {}, "refresh_token": {},
	"authorization": {},
	"credential":    {},
	"credentials":   {},
	"connection_string": {}, "connectionstring": {},
	"database_url": {}, "db_url": {},
	"aws_secret_access_key": {}, "aws_access_key_id": {},
	"ssn": {}, "social_security": {},
	"credit_card": {}, "card_number": {}, "cvv": {},
}

// Redactor scans messages and attributes for secret-shaped content and
// enforces the pipeline's size limits. Patterns are compiled once at
// construction so the redactor is independently testable.
type Redactor struct {
	patterns   []*regexp.Regexp
	denyList   map[string]struct{}
	maxValue   int
	maxAttrs   int
	maxMessage int
	logger     *log.Logger

	// Statistics
	totalRedacted  atomic.Uint64
	totalTruncated atomic.Uint64
	totalDropped   atomic.Uint64
}

// AttributeReport accounts for every attribute that passed through
// Attributes, so drop and redact decisions are observable.
type AttributeReport struct {
	Kept      int
	Redacted  int
	Truncated int
	Dropped   int
}

// New builds a redactor with the default pattern library and limits.
func New(logger *log.Logger) *Redactor {
	r, err := newWithPatterns(secretPatterns, logger)
	if err != nil {
		// Shouldn't happen: the built-in patterns are static
		panic(err)
	}
	return r
}

func newWithPatterns(patterns []string, logger *log.Logger) (*Redactor, error) {
	r := &Redactor{
		patterns:   make([]*regexp.Regexp, 0, len(patterns)),
		denyList:   sensitiveFieldNames,
		maxValue:   core.MaxAttributeValueSize,
		maxAttrs:   core.MaxAttributesPerRecord,
		maxMessage: core.MaxMessageSize,
		logger:     logger,
	}

	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern[%d] '%s': %w", i, pattern, err)
		}
		r.patterns = append(r.patterns, re)
	}

	return r, nil
}

// Text replaces every secret-shaped substring with the redaction
// sentinel, keeping the key prefix so the log line stays readable.
func (r *Redactor) Text(text string) string {
	for _, re := range r.patterns {
		redacted := re.ReplaceAllString(text, "${1}"+core.RedactionSentinel)
		if redacted != text {
			r.totalRedacted.Add(1)
			text = redacted
		}
	}
	return text
}

// Attributes filters a record's caller-supplied attributes:
// deny-listed keys are blanked, string values pass through Text and the
// per-value size ceiling, and only the first maxAttrs keys survive.
// Keys are visited in sorted order so the cap is deterministic.
func (r *Redactor) Attributes(attrs map[string]any) (map[string]any, AttributeReport) {
	var report AttributeReport
	filtered := make(map[string]any, len(attrs))

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if report.Kept >= r.maxAttrs {
			report.Dropped = len(keys) - report.Kept
			r.totalDropped.Add(uint64(report.Dropped))
			r.logger.Warn("msg", "Record exceeds attribute limit, extra attributes dropped",
				"component", "redactor",
				"limit", r.maxAttrs,
				"dropped", report.Dropped)
			break
		}

		if _, deny := r.denyList[lowerTrim(key)]; deny {
			filtered[key] = core.RedactionSentinel
			report.Kept++
			report.Redacted++
			r.totalRedacted.Add(1)
			continue
		}

		value := attrs[key]
		if s, ok := value.(string); ok {
			s = r.Text(s)
			if len(s) > r.maxValue {
				s = truncate(s, r.maxValue)
				report.Truncated++
				r.totalTruncated.Add(1)
			}
			value = s
		}

		filtered[key] = value
		report.Kept++
	}

	return filtered, report
}

// Normalize enforces the record-level contract: a valid severity, and a
// redacted, size-bounded message. It never fails on malformed input;
// non-string messages pass through untouched.
func (r *Redactor) Normalize(record core.Record) core.Record {
	severity, _ := record["severity"].(string)
	record["severity"] = core.NormalizeSeverity(severity)

	if message, ok := record["message"].(string); ok {
		message = r.Text(message)
		if len(message) > r.maxMessage {
			message = truncate(message, r.maxMessage)
			r.totalTruncated.Add(1)
		}
		record["message"] = message
	}

	return record
}

// GetStats returns redaction statistics
func (r *Redactor) GetStats() map[string]any {
	return map[string]any{
		"pattern_count":   len(r.patterns),
		"total_redacted":  r.totalRedacted.Load(),
		"total_truncated": r.totalTruncated.Load(),
		"total_dropped":   r.totalDropped.Load(),
	}
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// truncate cuts s to at most max bytes, backing up to the nearest rune
// boundary so the result stays valid UTF-8, and appends the marker.
// Callers guarantee len(s) > max.
func truncate(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + core.TruncationMarker
}
