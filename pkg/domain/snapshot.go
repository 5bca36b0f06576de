package domain

// Snapshot is the form's field-id-to-value data at a point in time. It is
// produced by the caller on every change, read by the engine, and never
// mutated or retained by it.
type Snapshot map[string]any

// Clone returns a copy of the snapshot. Top-level maps and slices are
// copied one level deep so the engine can overlay value overrides without
// touching the caller's data.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		switch t := v.(type) {
		case map[string]any:
			m := make(map[string]any, len(t))
			for mk, mv := range t {
				m[mk] = mv
			}
			out[k] = m
		case []any:
			l := make([]any, len(t))
			copy(l, t)
			out[k] = l
		default:
			out[k] = v
		}
	}
	return out
}

// Value returns the stored value for a field, or nil when the field has no
// value yet. A missing key and an explicit nil are equivalent: both count
// as empty.
func (s Snapshot) Value(fieldID string) any {
	if s == nil {
		return nil
	}
	return s[fieldID]
}
