package service

import (
	"regexp"
	"strings"
)

// Field keys produced by ExtractFields. They match the record store's
// column names so the browser can merge them straight into form state.
const (
	FieldPatientName        = "patient_name"
	FieldPatientAge         = "patient_age"
	FieldPatientGender      = "patient_gender"
	FieldExaminationType    = "examination_type"
	FieldExaminationDate    = "examination_date"
	FieldIndication         = "indication"
	FieldFindings           = "findings"
	FieldImpression         = "impression"
	FieldRecommendations    = "recommendations"
	FieldReferringPhysician = "referring_physician"
	FieldRadiologistName    = "radiologist_name"
)

// ExtractedFields maps field keys to the values recovered from report text.
// A missing key means no confident match was found for that field.
type ExtractedFields map[string]string

// fieldRule extracts one field from the raw text. Rules never consult each
// other's results; the same substring may well be captured twice.
type fieldRule struct {
	field string
	match func(text, lower string) (string, bool)
}

// examTypePriority is scanned in order; the first term present anywhere in
// the lowered text wins, regardless of where it appears.
var examTypePriority = []string{
	"abdomen", "pelvis", "obstetric", "thyroid", "breast",
	"musculoskeletal", "vascular", "cardiac", "renal",
}

var (
	nameLabelRe      = regexp.MustCompile(`(?i)(?:patient name|name)[:\s]*`)
	ageRe            = regexp.MustCompile(`(?i)(?:age|patient age)[:\s]*(\d{1,3})`)
	genderRe         = regexp.MustCompile(`(?i)(?:gender|sex)[:\s]*(male|female|m|f)`)
	dateRe           = regexp.MustCompile(`(?i)(?:date|exam date|examination date)[:\s]*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)
	dateSepRe        = regexp.MustCompile(`[-/]`)
	indicationRe     = regexp.MustCompile(`(?i)(?:indication|clinical indication|history)[:\s]*`)
	findingsRe       = regexp.MustCompile(`(?i)(?:findings|examination findings)[:\s]*`)
	impressionRe     = regexp.MustCompile(`(?i)(?:impression|conclusion|diagnosis)[:\s]*`)
	recommendationRe = regexp.MustCompile(`(?i)(?:recommendations|recommendation|follow[- ]?up)[:\s]*`)
	referringLabelRe = regexp.MustCompile(`(?i)(?:referring physician|referring doctor|referred by)[:\s]*`)
	radiologistRe    = regexp.MustCompile(`(?i)(?:radiologist|performed by|interpreted by)[:\s]*`)
)

var fieldRules = []fieldRule{
	{FieldPatientName, matchRun(nameLabelRe, runOpts{
		stopTokens: []string{"patient", "age", "dob", "date"},
	})},
	{FieldPatientAge, matchGroup(ageRe, nil)},
	{FieldPatientGender, matchGroup(genderRe, normalizeGender)},
	{FieldExaminationType, matchExamType},
	{FieldExaminationDate, matchGroup(dateRe, normalizeDate)},
	{FieldIndication, matchSection(indicationRe, []string{"findings", "impression", "recommendation"})},
	{FieldFindings, matchSection(findingsRe, []string{"impression", "recommendation", "radiologist"})},
	{FieldImpression, matchSection(impressionRe, []string{"recommendation", "radiologist", "referring"})},
	{FieldRecommendations, matchSection(recommendationRe, []string{"radiologist", "referring"})},
	{FieldReferringPhysician, matchRun(referringLabelRe, runOpts{
		stopTokens:  []string{"radiologist"},
		allowPeriod: true,
		stopAtEnd:   true,
	})},
	{FieldRadiologistName, matchRun(radiologistRe, runOpts{
		allowPeriod: true,
		stopAtEnd:   true,
	})},
}

// ExtractFields runs every field rule over the raw report text and collects
// the matches. It is deterministic, has no side effects and never fails:
// fields without a match are simply absent from the result.
func ExtractFields(text string) ExtractedFields {
	out := make(ExtractedFields)
	lower := strings.ToLower(text)
	for _, rule := range fieldRules {
		if value, ok := rule.match(text, lower); ok {
			out[rule.field] = value
		}
	}
	return out
}

// matchGroup captures the first submatch of re, optionally normalized.
func matchGroup(re *regexp.Regexp, normalize func(string) (string, bool)) func(text, lower string) (string, bool) {
	return func(text, _ string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if normalize == nil {
			return m[1], true
		}
		return normalize(m[1])
	}
}

// runOpts controls a free-text run capture following a label.
type runOpts struct {
	stopTokens  []string // tokens that end the run (checked case-insensitively)
	allowPeriod bool     // permit '.' inside the run (physician names)
	stopAtEnd   bool     // end of text is a valid terminator
}

// matchRun finds each occurrence of labelRe and tries to capture the run of
// letters and whitespace immediately after it. A run ends before a newline,
// a digit or a stop token; a character outside the allowed set voids the
// current occurrence and the search moves on to the next one.
func matchRun(labelRe *regexp.Regexp, opts runOpts) func(text, lower string) (string, bool) {
	return func(text, _ string) (string, bool) {
		for _, loc := range labelRe.FindAllStringIndex(text, -1) {
			if value, ok := captureRun(text, loc[1], opts); ok {
				return strings.TrimSpace(value), true
			}
		}
		return "", false
	}
}

// captureRun scans the run starting at start. The first character must be a
// letter and the run must span at least two characters before a terminator
// counts; single-letter runs are never accepted.
func captureRun(text string, start int, opts runOpts) (string, bool) {
	if start >= len(text) || !isASCIILetter(text[start]) {
		return "", false
	}
	i := start + 1
	taken := 1
	for {
		if taken >= 2 {
			if i >= len(text) {
				if opts.stopAtEnd {
					return text[start:i], true
				}
				return "", false
			}
			c := text[i]
			if c == '\n' || isDigit(c) || hasFoldedPrefix(text[i:], opts.stopTokens) {
				return text[start:i], true
			}
		} else if i >= len(text) {
			return "", false
		}
		c := text[i]
		switch {
		case isASCIILetter(c) || isSpace(c):
			i++
			taken++
		case opts.allowPeriod && c == '.':
			i++
			taken++
		default:
			return "", false
		}
	}
}

// matchSection captures a block of lines after a label: the remainder of the
// label's line, then every following line until a blank line, end of text or
// a line beginning with one of the stop prefixes. The label separator is
// allowed to swallow newlines, so the block may start on a later line.
func matchSection(labelRe *regexp.Regexp, stops []string) func(text, lower string) (string, bool) {
	return func(text, _ string) (string, bool) {
		loc := labelRe.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		start := loc[1]
		if start >= len(text) {
			return "", false
		}

		var b strings.Builder
		rest := text[start:]
		j := strings.IndexByte(rest, '\n')
		if j < 0 {
			b.WriteString(rest)
			return strings.TrimSpace(b.String()), true
		}
		b.WriteString(rest[:j])
		i := start + j // at the newline
		for i < len(text)-1 {
			line := text[i+1:]
			k := strings.IndexByte(line, '\n')
			if k >= 0 {
				line = line[:k]
			}
			if line == "" || hasFoldedPrefix(line, stops) {
				break
			}
			b.WriteByte('\n')
			b.WriteString(line)
			if k < 0 {
				break
			}
			i += 1 + k
		}
		return strings.TrimSpace(b.String()), true
	}
}

// matchExamType resolves the examination type by priority-list order, not by
// position in the text.
func matchExamType(_, lower string) (string, bool) {
	for _, t := range examTypePriority {
		if strings.Contains(lower, t) {
			return strings.ToUpper(t[:1]) + t[1:], true
		}
	}
	return "", false
}

// normalizeGender maps the matched token to the stored enum. Only binary
// tokens are recognized: m/male become Male, every other match Female.
func normalizeGender(raw string) (string, bool) {
	g := strings.ToLower(raw)
	if g == "m" || g == "male" {
		return "Male", true
	}
	return "Female", true
}

// normalizeDate rewrites D[D][-/]D[D][-/]YY[YY] (month first) as YYYY-MM-DD.
// Two-digit years are taken as 20xx. Tokens that do not split into exactly
// three parts are dropped.
func normalizeDate(raw string) (string, bool) {
	parts := dateSepRe.Split(raw, -1)
	if len(parts) != 3 {
		return "", false
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + pad2(parts[0]) + "-" + pad2(parts[1]), true
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func hasFoldedPrefix(s string, tokens []string) bool {
	for _, tok := range tokens {
		if len(s) >= len(tok) && strings.EqualFold(s[:len(tok)], tok) {
			return true
		}
	}
	return false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
