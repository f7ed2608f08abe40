package chunker

import "regexp"

// Content type taxonomy. Every chunk gets exactly one of these labels;
// downstream stages use them for filtering and display.
const (
	TypeCode         = "code"
	TypeRegisterTbl  = "register_table"
	TypeRegisterDesc = "register_description"
	TypeTimingSpec   = "timing_spec"
	TypeConfigProc   = "config_procedure"
	TypeErrata       = "errata"
	TypePinMapping   = "pin_mapping"
	TypeElectrical   = "electrical_spec"
	TypeAPIReference = "api_reference" // reserved: produced by C-header extraction, not this classifier
	TypeTable        = "table"
	TypeSection      = "section"
	TypeProse        = "prose"
)

// fenceMarkRE finds a fenced-block opening marker anywhere in the text.
var fenceMarkRE = regexp.MustCompile("(?m)^(`{3,}|~{3,})")

// Keyword families for the hardware-domain taxonomy. Kept as raw building
// blocks so the two cascades below can order them independently.
var (
	registerKwRE = regexp.MustCompile(
		`(?i)\b(?:register|offset|reset\s*value|bit\s*field|` +
			`read[/\s-]write|read[/\s-]only|write[/\s-]only|base\s*address)\b` +
			`|0x[0-9A-Fa-f]{8}`)

	timingKwRE = regexp.MustCompile(
		`(?i)\b\d+\s*(?:ns|µs|us|ms|MHz|kHz|GHz)\b` +
			`|\b(?:setup\s*time|hold\s*time|propagation\s*delay|` +
			`clock\s*(?:speed|frequency|period)|baud\s*rate)\b`)

	configProcKwRE = regexp.MustCompile(
		`(?i)\b(?:step\s*\d|initialization\s*sequence|` +
			`programming\s*procedure|following\s*steps|` +
			`must\s*be\s*set|should\s*be\s*configured)\b`)

	errataKwRE = regexp.MustCompile(
		`(?i)\b(?:errat(?:a|um)|workaround|limitation|silicon\s*bug|` +
			`advisory|known\s*issue)\b` +
			`|ES\d{4}`)

	pinMapKwRE = regexp.MustCompile(
		`(?i)\b(?:alternate\s*function|AF\d+|` +
			`pin\s*(?:mapping|assignment|configuration)|remap)\b` +
			`|\bGPIO[A-Z]\d*\b`)

	// kΩ gets no trailing \b: RE2 word boundaries are ASCII-only and
	// never match after a non-ASCII rune.
	electricalKwRE = regexp.MustCompile(
		`(?i)\b\d+\.?\d*\s*(?:mA|µA|uA)\b|\b\d+\.?\d*\s*kΩ` +
			`|\b(?:power\s*supply|current\s*consumption|` +
			`voltage\s*(?:range|level))\b` +
			`|\bV(?:DD|CC|SS|DDA|BAT|REF)\b`)
)

// classifyRule pairs a predicate with the label it assigns. Rules are
// evaluated strictly in order with early return; the ordering carries
// correctness-sensitive tie-breaks (errata beats register_description even
// when both keyword families match), so do not reorder.
type classifyRule struct {
	match func(string) bool
	label string
}

// tableRules refine chunks that contain a table separator row.
var tableRules = []classifyRule{
	{registerKwRE.MatchString, TypeRegisterTbl},
	{pinMapKwRE.MatchString, TypePinMapping},
	{electricalKwRE.MatchString, TypeElectrical},
	{timingKwRE.MatchString, TypeTimingSpec},
}

// proseRules classify non-table, non-code chunks by keyword family.
var proseRules = []classifyRule{
	{errataKwRE.MatchString, TypeErrata},
	{configProcKwRE.MatchString, TypeConfigProc},
	{registerKwRE.MatchString, TypeRegisterDesc},
	{timingKwRE.MatchString, TypeTimingSpec},
	{pinMapKwRE.MatchString, TypePinMapping},
	{electricalKwRE.MatchString, TypeElectrical},
}

// classifyContent assigns one taxonomy label to a chunk of text. Structural
// markers win first (code fences, then table subtypes), then domain keyword
// families, then generic structural fallbacks. Pure function of the text.
//
// A bold-emphasis run at body font size could signal a sub-heading, but
// that heuristic proved too unreliable and is deliberately not applied.
func classifyContent(text string) string {
	if fenceMarkRE.MatchString(text) {
		return TypeCode
	}

	if tableSepRE.MatchString(text) {
		for _, r := range tableRules {
			if r.match(text) {
				return r.label
			}
		}
		return TypeTable
	}

	for _, r := range proseRules {
		if r.match(text) {
			return r.label
		}
	}

	if headingRE.MatchString(text) {
		return TypeSection
	}
	return TypeProse
}
