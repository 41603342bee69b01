package fieldtype

// disambiguate narrows fields whose candidates span mutually exclusive
// groups. Name resolution reads neighbor sets as they were before any
// narrowing so the outcome does not depend on field order.
func disambiguate(fields []Field) {
	before := make([]TypeSet, len(fields))
	for i := range fields {
		before[i] = fields[i].Types.Clone()
	}
	for i := range fields {
		types := fields[i].Types
		if types.Has(AddressLine1) && types.Has(AddressStreet) {
			disambiguateAddress(fields, i)
		}
		if types.Has(PhoneWholeNumber) && types.Has(PhoneCityAndNumber) {
			types.Remove(PhoneWholeNumber)
		}
		if isNameAmbiguous(types) {
			disambiguateName(fields, before, i)
		}
	}
}

// disambiguateAddress keeps line 1 only when the next field was predicted as
// line 2 and left empty; otherwise the value is the whole street address.
func disambiguateAddress(fields []Field, i int) {
	types := fields[i].Types
	if i+1 < len(fields) {
		next := fields[i+1]
		if next.Predicted == AddressLine2 && next.IsEmpty() {
			types.Remove(AddressStreet)
			return
		}
	}
	types.Remove(AddressLine1)
}

func isNameAmbiguous(types TypeSet) bool {
	if !types.Has(CardNameFull) {
		return false
	}
	for t := range types {
		if t.Group() == GroupName {
			return true
		}
	}
	return false
}

type nameKind int

const (
	kindNone nameKind = iota
	kindPersonal
	kindCard
)

// neighborKind classifies a neighbor as card or personal. Name fields,
// fields without signal and fields mixing both kinds are skipped.
func neighborKind(f Field, types TypeSet) nameKind {
	if f.Predicted.IsName() {
		return kindNone
	}
	hasCard, hasPersonal := false, false
	for t := range types {
		if t.IsName() {
			return kindNone
		}
		switch t.Group() {
		case GroupCard:
			hasCard = true
		case GroupNone:
		default:
			hasPersonal = true
		}
	}
	if !hasCard && !hasPersonal {
		switch f.Predicted.Group() {
		case GroupCard:
			hasCard = true
		case GroupNone:
		default:
			hasPersonal = true
		}
	}
	switch {
	case hasCard && !hasPersonal:
		return kindCard
	case hasPersonal && !hasCard:
		return kindPersonal
	default:
		return kindNone
	}
}

// disambiguateName resolves a field that matches both the card holder name
// and a personal name using the nearest classifiable neighbor on each side.
// With no neighbor, or neighbors that disagree, both kinds are kept.
func disambiguateName(fields []Field, before []TypeSet, i int) {
	prev := kindNone
	for j := i - 1; j >= 0 && prev == kindNone; j-- {
		prev = neighborKind(fields[j], before[j])
	}
	next := kindNone
	for j := i + 1; j < len(fields) && next == kindNone; j++ {
		next = neighborKind(fields[j], before[j])
	}

	var resolved nameKind
	switch {
	case prev == kindNone && next == kindNone:
		return
	case prev == kindNone:
		resolved = next
	case next == kindNone:
		resolved = prev
	case prev == next:
		resolved = prev
	default:
		return
	}

	types := fields[i].Types
	for t := range types {
		switch {
		case resolved == kindCard && t.Group() == GroupName:
			types.Remove(t)
		case resolved == kindPersonal && t == CardNameFull:
			types.Remove(t)
		}
	}
}
