package damage

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// The damage flags arrive as "checked"/"unchecked" while insurance arrives as
// "Yes"/"No"; each keeps its own vocabulary.
var (
	flagTrue   = vocabulary("checked", "true", "yes", "1", "on")
	flagFalse  = vocabulary("", "unchecked", "false", "no", "0", "off", "n/a", "none")
	yesNoTrue  = vocabulary("yes", "true", "1", "on")
	yesNoFalse = vocabulary("no", "false", "0", "off", "", "n/a", "none")
	noUnit     = vocabulary("none", "n/a", "")
)

func vocabulary(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Coerce converts one raw wire value into the typed value its field expects.
// Enumerations, dates and patterns are only trimmed here; Build checks them.
func Coerce(spec FieldSpec, raw string) (any, error) {
	value := strings.TrimSpace(raw)

	switch spec.Key {
	case KeyUnitSuite:
		if _, ok := noUnit[strings.ToLower(value)]; ok {
			return "", nil
		}
		return value, nil
	case KeyHandling:
		// A Caser is stateful, so each call gets its own.
		return cases.Title(language.Und).String(value), nil
	}

	switch spec.Kind {
	case KindBoolean:
		return toBool(spec.Key, value, flagTrue, flagFalse)
	case KindYesNo:
		return toBool(spec.Key, value, yesNoTrue, yesNoFalse)
	case KindInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, invalid(spec.Key, raw, "must be an integer")
		}
		return n, nil
	default:
		return value, nil
	}
}

func toBool(field, value string, truthy, falsy map[string]struct{}) (bool, error) {
	lower := strings.ToLower(value)
	if _, ok := truthy[lower]; ok {
		return true, nil
	}
	if _, ok := falsy[lower]; ok {
		return false, nil
	}
	return false, invalid(field, value, "cannot convert to boolean")
}
