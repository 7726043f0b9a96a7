package event

// ResponseCollection holds listener return values in call order.
type ResponseCollection struct {
	results []any
	stopped bool
}

func (rc *ResponseCollection) push(v any) { rc.results = append(rc.results, v) }

// Stopped reports whether the chain was short-circuited.
func (rc *ResponseCollection) Stopped() bool { return rc.stopped }

func (rc *ResponseCollection) Len() int { return len(rc.results) }

// First returns the first result or nil.
func (rc *ResponseCollection) First() any {
	if len(rc.results) == 0 {
		return nil
	}
	return rc.results[0]
}

// Last returns the last result or nil.
func (rc *ResponseCollection) Last() any {
	if len(rc.results) == 0 {
		return nil
	}
	return rc.results[len(rc.results)-1]
}

// Contains reports whether any result equals v. Uncomparable results are skipped.
func (rc *ResponseCollection) Contains(v any) bool {
	for _, r := range rc.results {
		if comparableEqual(r, v) {
			return true
		}
	}
	return false
}

func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
