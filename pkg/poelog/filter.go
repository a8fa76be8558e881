package poelog

// zoneFilter decides which zone types are reported. A nil *zoneFilter
// reports every type.
type zoneFilter struct {
	only map[ZoneType]bool // when non-empty, nothing else is reported
	skip map[ZoneType]bool // never reported, even if listed in only
}

// newZoneFilter returns nil when neither list names a type, so the hot
// path pays nothing for an unfiltered monitor.
func newZoneFilter(only, skip []ZoneType) *zoneFilter {
	if len(only) == 0 && len(skip) == 0 {
		return nil
	}
	return &zoneFilter{only: typeSet(only), skip: typeSet(skip)}
}

// orEmpty lets options fill one list at a time.
func (f *zoneFilter) orEmpty() *zoneFilter {
	if f == nil {
		return &zoneFilter{}
	}
	return f
}

func typeSet(types []ZoneType) map[ZoneType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[ZoneType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// Allows reports whether an event of zone type t passes.
func (f *zoneFilter) Allows(t ZoneType) bool {
	if f == nil {
		return true
	}
	if f.skip[t] {
		return false
	}
	return len(f.only) == 0 || f.only[t]
}
