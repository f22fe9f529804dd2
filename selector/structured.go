package selector

import "sort"

// Structured bundles named selector outputs into one record without
// custom combine logic. It is a memoized selector over the field
// selectors: the record is rebuilt only when at least one field's output
// changes.
func Structured[S any](fields map[string]Func[S, any], opts ...Option) *Memoized[S, map[string]any] {
	// Fixed field order keeps the cached input tuple comparable
	// across calls.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	selectors := make([]Func[S, any], len(names))
	for i, name := range names {
		selectors[i] = fields[name]
	}

	cfg := applyOptions(opts)
	return &Memoized[S, map[string]any]{
		equal: cfg.equal,
		eval: func(state S) ([]any, func() map[string]any) {
			values := make([]any, len(selectors))
			for i, sel := range selectors {
				values[i] = sel(state)
			}
			return values, func() map[string]any {
				out := make(map[string]any, len(names))
				for i, name := range names {
					out[name] = values[i]
				}
				return out
			}
		},
	}
}
