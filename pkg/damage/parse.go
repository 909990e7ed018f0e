package damage

import "fmt"

// relayPlaceholder fills operator relay fields that the sender left out.
const relayPlaceholder = "N/A"

// Parse converts wire text into a validated Record. Every failure is wrapped
// with its class preserved, so errors.As still finds *FormatError and friends.
func Parse(text string) (Record, error) {
	fm, err := FieldMapFromWire(text)
	if err != nil {
		return Record{}, fmt.Errorf("parse damage assessment: %w", err)
	}
	r, err := Build(fm)
	if err != nil {
		return Record{}, fmt.Errorf("parse damage assessment: %w", err)
	}
	return r, nil
}

// FieldMapFromWire scans and coerces wire text without validating the result.
func FieldMapFromWire(text string) (FieldMap, error) {
	header, tags, err := Scan(text)
	if err != nil {
		return nil, err
	}

	fm := FieldMap{
		KeyOrganization: header.Organization,
		KeyFormFileName: header.FormFileName,
		KeyFormVersion:  header.FormVersion,
	}
	for _, spec := range schema {
		if spec.IsHeader() {
			continue
		}
		if spec.Kind == KindDateTime {
			date, hasDate := tags.Get(spec.WireTag)
			clock, hasClock := tags.Get(spec.TimeTag)
			if !hasDate && !hasClock {
				continue
			}
			stamp, err := combineStamp(spec.Key, date, clock)
			if err != nil {
				return nil, err
			}
			fm[spec.Key] = stamp
			continue
		}
		raw, ok := tags.Get(spec.WireTag)
		if !ok {
			continue
		}
		v, err := Coerce(spec, raw)
		if err != nil {
			return nil, err
		}
		fm[spec.Key] = v
	}

	for _, key := range []string{KeyOpRelayRcvd, KeyOpRelaySent} {
		if _, ok := fm[key]; !ok {
			fm[key] = relayPlaceholder
		}
	}
	return fm, nil
}
