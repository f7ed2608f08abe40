package ingest

import (
	"io"
	"strings"

	"hwingest/internal/hwdoc"
)

// DeviceTreeParser handles .dts/.dtsi sources. The DTS text is kept as-is
// (it is human-readable and downstream tools parse it natively); compatible
// strings and the board model are lifted into metadata, and the chip is
// inferred from well-known vendor prefixes.
type DeviceTreeParser struct{}

// Vendor compatible prefixes mapped to chip families.
var vendorChipMap = map[string]string{
	"fsl,imx8mp":            "i.MX8MP",
	"fsl,imx8mm":            "i.MX8MM",
	"fsl,imx8mn":            "i.MX8MN",
	"fsl,imx8mq":            "i.MX8MQ",
	"fsl,imx6q":             "i.MX6Q",
	"fsl,imx6ul":            "i.MX6UL",
	"fsl,imx93":             "i.MX93",
	"ti,am625":              "AM625",
	"ti,am62p":              "AM62P",
	"rockchip,rk3588":       "RK3588",
	"rockchip,rk3568":       "RK3568",
	"rockchip,rk3399":       "RK3399",
	"allwinner,sun50i-h6":   "H6",
	"st,stm32mp157":         "STM32MP157",
	"st,stm32mp135":         "STM32MP135",
	"raspberrypi,4-model-b": "BCM2711",
}

func (p *DeviceTreeParser) Parse(r io.Reader, filename string) (*hwdoc.Document, error) {
	data, err := readAllLimited(r, filename)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(decodeText(data))

	compatibles := extractCompatibles(content)
	model := extractModel(content)

	title := model
	if title == "" {
		title = stem(filename)
	}

	chip := ""
	for _, c := range compatibles {
		if mapped, ok := vendorChipMap[c]; ok {
			chip = mapped
			break
		}
	}

	meta := map[string]string{}
	if len(compatibles) > 0 {
		meta["compatible"] = strings.Join(compatibles, ", ")
	}
	if model != "" {
		meta["model"] = model
	}

	return &hwdoc.Document{
		DocID:    docIDFromFilename(filename) + "_dts",
		Content:  content,
		DocType:  DocTypeDeviceTree,
		Chip:     chip,
		Title:    title,
		Metadata: meta,
	}, nil
}

// extractCompatibles collects the quoted strings from every
// `compatible = "...", "...";` statement, deduplicated in order.
func extractCompatibles(content string) []string {
	var result []string
	seen := make(map[string]bool)

	rest := content
	for {
		idx := strings.Index(rest, "compatible")
		if idx < 0 {
			break
		}
		rest = rest[idx+len("compatible"):]
		eq := strings.IndexByte(rest, '=')
		semi := strings.IndexByte(rest, ';')
		if eq < 0 || semi < 0 || eq > semi {
			continue
		}
		for _, s := range quotedStrings(rest[eq:semi]) {
			if !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
		rest = rest[semi:]
	}
	return result
}

// extractModel returns the value of the first `model = "...";` statement.
func extractModel(content string) string {
	idx := strings.Index(content, "model")
	for idx >= 0 {
		rest := content[idx+len("model"):]
		eq := strings.IndexByte(rest, '=')
		semi := strings.IndexByte(rest, ';')
		if eq >= 0 && semi > eq {
			if qs := quotedStrings(rest[eq:semi]); len(qs) > 0 {
				return qs[0]
			}
		}
		next := strings.Index(content[idx+1:], "model")
		if next < 0 {
			break
		}
		idx += 1 + next
	}
	return ""
}

func quotedStrings(s string) []string {
	var result []string
	for {
		start := strings.IndexByte(s, '"')
		if start < 0 {
			break
		}
		s = s[start+1:]
		end := strings.IndexByte(s, '"')
		if end < 0 {
			break
		}
		result = append(result, s[:end])
		s = s[end+1:]
	}
	return result
}
