package damage

import (
	"sort"
	"strconv"
	"strings"
)

type wireLine struct {
	tag  string
	text string
}

// Render writes a record back out as canonical wire text. Parsing the result
// yields a record Equal to r.
func Render(r Record) string {
	f := r.f
	lines := []string{
		f.Organization,
		FormFilePrefix + " " + f.FormFileName,
		FormVersionPrefix + " " + f.FormVersion,
		"MsgNo: [" + f.MsgNo + "]",
	}

	var body []wireLine
	for _, spec := range schema {
		if spec.IsHeader() || spec.Key == KeyMsgNo {
			continue
		}
		if spec.Kind == KindDateTime {
			date, clock := splitStamp(*spec.ref(&f).(*string))
			body = append(body, formatLine(spec.WireTag, date), formatLine(spec.TimeTag, clock))
			continue
		}
		body = append(body, formatLine(spec.WireTag, formatValue(spec, spec.ref(&f))))
	}
	sort.SliceStable(body, func(i, j int) bool {
		return tagLess(body[i].tag, body[j].tag)
	})

	for _, l := range body {
		lines = append(lines, l.text)
	}
	lines = append(lines, Sentinel)
	return strings.Join(lines, "\n")
}

func formatLine(tag, value string) wireLine {
	label := tag + ":"
	if _, _, ok := numericTag(tag); ok {
		label = tag + ".:"
	}
	return wireLine{tag: tag, text: label + " [" + value + "]"}
}

func formatValue(spec FieldSpec, ref any) string {
	switch v := ref.(type) {
	case *bool:
		if spec.Kind == KindYesNo {
			if *v {
				return "Yes"
			}
			return "No"
		}
		if *v {
			return "checked"
		}
		return ""
	case *int:
		return strconv.Itoa(*v)
	case *string:
		if spec.Key == KeyUnitSuite && *v == "" {
			return "None"
		}
		return *v
	}
	return ""
}

// numericTag splits "27a" into 27 and "a". It reports false for alphabetic
// tags such as "OpCall".
func numericTag(tag string) (n int, suffix string, ok bool) {
	digits := tag
	if len(tag) > 1 {
		last := tag[len(tag)-1]
		if last < '0' || last > '9' {
			digits, suffix = tag[:len(tag)-1], tag[len(tag)-1:]
		}
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, "", false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, "", false
	}
	return n, suffix, true
}

// tagLess orders numeric tags by number then suffix, ahead of all alphabetic
// tags. Alphabetic tags compare equal so a stable sort keeps table order.
func tagLess(a, b string) bool {
	an, as, aok := numericTag(a)
	bn, bs, bok := numericTag(b)
	switch {
	case aok && bok:
		if an != bn {
			return an < bn
		}
		return as < bs
	case aok:
		return true
	default:
		return false
	}
}
