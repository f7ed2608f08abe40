package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"hwingest/internal/hwdoc"
)

// SVDParser converts CMSIS-SVD register descriptions into a markdown
// register map: one section per peripheral with a register summary table
// and per-register field tables. The rendered tables are exactly the shape
// the chunking engine keeps atomic and classifies as register_table.
type SVDParser struct{}

// CMSIS-SVD document structure, limited to the elements this renderer uses.
type svdDevice struct {
	Name        string          `xml:"name"`
	Description string          `xml:"description"`
	CPU         svdCPU          `xml:"cpu"`
	Peripherals []svdPeripheral `xml:"peripherals>peripheral"`
}

type svdCPU struct {
	Name     string `xml:"name"`
	Revision string `xml:"revision"`
}

type svdPeripheral struct {
	Name        string        `xml:"name"`
	Description string        `xml:"description"`
	BaseAddress string        `xml:"baseAddress"`
	DerivedFrom string        `xml:"derivedFrom,attr"`
	Registers   []svdRegister `xml:"registers>register"`
}

type svdRegister struct {
	Name          string     `xml:"name"`
	Description   string     `xml:"description"`
	AddressOffset string     `xml:"addressOffset"`
	Size          string     `xml:"size"`
	Access        string     `xml:"access"`
	ResetValue    string     `xml:"resetValue"`
	Fields        []svdField `xml:"fields>field"`
}

type svdField struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	BitOffset   string `xml:"bitOffset"`
	BitWidth    string `xml:"bitWidth"`
	BitRange    string `xml:"bitRange"`
	Access      string `xml:"access"`
}

func (p *SVDParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	data, err := readAllLimited(r, filename)
	if err != nil {
		return nil, err
	}

	// Vendor SVD files never carry DTDs; reject them outright rather than
	// risk external entity expansion.
	if strings.Contains(string(data[:min(len(data), 8192)]), "<!DOCTYPE") {
		return nil, parseErr(filename, "svd file contains a DTD declaration")
	}

	var device svdDevice
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	dec.Strict = false
	if err := dec.Decode(&device); err != nil {
		return nil, parseErr(filename, "decode svd xml: %w", err)
	}

	resolveDerivedPeripherals(device.Peripherals)

	chip := device.Name
	if chip == "" {
		chip = stem(filename)
	}

	content := renderSVDDevice(&device, chip)
	registers := 0
	for _, per := range device.Peripherals {
		registers += len(per.Registers)
	}

	return &hwdoc.Document{
		DocID:   docIDFromFilename(filename) + "_svd",
		Content: content,
		DocType: DocTypeSVD,
		Chip:    chip,
		Title:   chip + " Register Map",
		Metadata: map[string]string{
			"peripheral_count": strconv.Itoa(len(device.Peripherals)),
			"register_count":   strconv.Itoa(registers),
			"cpu":              device.CPU.Name,
		},
	}, nil
}

// resolveDerivedPeripherals fills in peripherals declared with a derivedFrom
// attribute. Vendor files lean on this heavily (GPIOB..GPIOK all derive from
// GPIOA), so a derived peripheral with no registers of its own inherits the
// base's register set, rendered at its own base address. Short derivation
// chains are followed; the description falls back to the base's when empty.
func resolveDerivedPeripherals(peripherals []svdPeripheral) {
	byName := make(map[string]*svdPeripheral, len(peripherals))
	for i := range peripherals {
		byName[peripherals[i].Name] = &peripherals[i]
	}
	for i := range peripherals {
		per := &peripherals[i]
		if len(per.Registers) > 0 {
			continue
		}
		base := per
		for depth := 0; depth < 8 && base.DerivedFrom != "" && len(base.Registers) == 0; depth++ {
			next, ok := byName[base.DerivedFrom]
			if !ok || next == base {
				break
			}
			base = next
		}
		if base == per || len(base.Registers) == 0 {
			continue
		}
		per.Registers = base.Registers
		if per.Description == "" {
			per.Description = base.Description
		}
	}
}

func renderSVDDevice(device *svdDevice, chip string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Register Map\n\n", chip)
	fmt.Fprintf(&b, "**Device:** %s\n", chip)
	if d := strings.TrimSpace(device.Description); d != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", squeezeWhitespace(d))
	}
	if device.CPU.Name != "" {
		cpu := device.CPU.Name
		if device.CPU.Revision != "" {
			cpu += ", revision " + device.CPU.Revision
		}
		fmt.Fprintf(&b, "**CPU:** %s\n", cpu)
	}
	b.WriteString("\n")

	peripherals := append([]svdPeripheral(nil), device.Peripherals...)
	sort.Slice(peripherals, func(i, j int) bool { return peripherals[i].Name < peripherals[j].Name })

	for _, per := range peripherals {
		b.WriteString("---\n\n")
		renderSVDPeripheral(&b, &per)
	}

	return strings.TrimSpace(b.String())
}

func renderSVDPeripheral(b *strings.Builder, per *svdPeripheral) {
	fmt.Fprintf(b, "## %s\n\n", per.Name)
	if addr, ok := parseSVDInt(per.BaseAddress); ok {
		fmt.Fprintf(b, "**Base Address:** `0x%08X`\n", addr)
	}
	if d := strings.TrimSpace(per.Description); d != "" {
		fmt.Fprintf(b, "**Description:** %s\n", squeezeWhitespace(d))
	}
	b.WriteString("\n")

	if len(per.Registers) == 0 {
		b.WriteString("*No registers defined.*\n\n")
		return
	}

	registers := append([]svdRegister(nil), per.Registers...)
	sort.Slice(registers, func(i, j int) bool {
		oi, _ := parseSVDInt(registers[i].AddressOffset)
		oj, _ := parseSVDInt(registers[j].AddressOffset)
		return oi < oj
	})

	b.WriteString("### Registers\n\n")
	b.WriteString("| Register | Offset | Size | Access | Reset | Description |\n")
	b.WriteString("|----------|--------|------|--------|-------|-------------|\n")
	for _, reg := range registers {
		offset := "—"
		if v, ok := parseSVDInt(reg.AddressOffset); ok {
			offset = fmt.Sprintf("0x%04X", v)
		}
		size := orDash(reg.Size)
		reset := "—"
		if v, ok := parseSVDInt(reg.ResetValue); ok {
			reset = fmt.Sprintf("0x%08X", v)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			reg.Name, offset, size, formatAccess(reg.Access), reset,
			squeezeWhitespace(reg.Description))
	}
	b.WriteString("\n")

	for _, reg := range registers {
		if len(reg.Fields) > 0 {
			renderSVDFields(b, &reg)
		}
	}
}

func renderSVDFields(b *strings.Builder, reg *svdRegister) {
	fmt.Fprintf(b, "### %s Fields\n\n", reg.Name)
	b.WriteString("| Field | Bits | Access | Reset | Description |\n")
	b.WriteString("|-------|------|--------|-------|-------------|\n")

	fields := append([]svdField(nil), reg.Fields...)
	sort.Slice(fields, func(i, j int) bool {
		return fieldMSB(fields[i]) > fieldMSB(fields[j])
	})

	for _, f := range fields {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			f.Name, fieldBits(f), formatAccess(f.Access), fieldReset(reg, f),
			squeezeWhitespace(f.Description))
	}
	b.WriteString("\n")
}

// fieldReset slices a field's bits out of the register reset value.
func fieldReset(reg *svdRegister, f svdField) string {
	resetVal, ok := parseSVDInt(reg.ResetValue)
	if !ok {
		return "—"
	}
	offset, width, ok := fieldPosition(f)
	if !ok {
		return "—"
	}
	mask := uint64(1)<<uint(width) - 1
	return fmt.Sprintf("0x%X", uint64(resetVal)>>uint(offset)&mask)
}

// fieldPosition resolves a field's lsb offset and width from either the
// bitRange form ([msb:lsb]) or the bitOffset/bitWidth pair.
func fieldPosition(f svdField) (offset, width int64, ok bool) {
	if r := strings.TrimSpace(f.BitRange); r != "" {
		msbStr, lsbStr, found := strings.Cut(strings.Trim(r, "[]"), ":")
		if !found {
			v, vok := parseSVDInt(msbStr)
			return v, 1, vok
		}
		msb, mok := parseSVDInt(msbStr)
		lsb, lok := parseSVDInt(lsbStr)
		if !mok || !lok || msb < lsb {
			return 0, 0, false
		}
		return lsb, msb - lsb + 1, true
	}
	offset, ok = parseSVDInt(f.BitOffset)
	if !ok {
		return 0, 0, false
	}
	width, ok = parseSVDInt(f.BitWidth)
	if !ok || width < 1 {
		width = 1
	}
	return offset, width, true
}

// fieldBits renders a field's bit position as [msb:lsb] or [n].
func fieldBits(f svdField) string {
	if r := strings.TrimSpace(f.BitRange); r != "" {
		return r
	}
	offset, ok := parseSVDInt(f.BitOffset)
	if !ok {
		return "—"
	}
	width, ok := parseSVDInt(f.BitWidth)
	if !ok || width <= 1 {
		return fmt.Sprintf("[%d]", offset)
	}
	return fmt.Sprintf("[%d:%d]", offset+width-1, offset)
}

func fieldMSB(f svdField) int64 {
	offset, width, ok := fieldPosition(f)
	if !ok {
		return 0
	}
	return offset + width - 1
}

// parseSVDInt parses SVD numeric literals: 0x hex, decimal, or #-prefixed
// binary.
func parseSVDInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseInt(strings.ReplaceAll(s[1:], "x", "0"), 2, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatAccess(access string) string {
	switch strings.ToLower(strings.TrimSpace(access)) {
	case "read-only":
		return "RO"
	case "write-only":
		return "WO"
	case "read-write":
		return "RW"
	case "writeonce":
		return "W1"
	case "read-writeonce":
		return "RW1"
	case "":
		return "—"
	default:
		return access
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func squeezeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
