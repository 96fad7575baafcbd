package xmlfilter

// Record is the dynamically-typed output of an extraction run. Fields whose
// bodies failed to parse are simply absent.
type Record map[string]any

// Has reports whether the field was collected.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field as a string, or "" when absent.
func (r Record) String(field string) string {
	v, _ := r[field].(string)
	return v
}

// Int64 returns the field as an int64, or 0 when absent.
func (r Record) Int64(field string) int64 {
	v, _ := r[field].(int64)
	return v
}

// Float64 returns the field as a float64, or 0 when absent.
func (r Record) Float64(field string) float64 {
	v, _ := r[field].(float64)
	return v
}

// Bool returns the field as a bool, or false when absent.
func (r Record) Bool(field string) bool {
	v, _ := r[field].(bool)
	return v
}

// Records returns the field as a list of sub-records, or nil when absent.
func (r Record) Records(field string) []Record {
	v, _ := r[field].([]Record)
	return v
}

// Strings returns the named string field of every sub-record in the list.
func (r Record) Strings(field, sub string) []string {
	items := r.Records(field)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := item.String(sub); s != "" {
			out = append(out, s)
		}
	}
	return out
}
