package dvbt

// DiagnosticFunc receives an intermediate signal for plotting. name is a short
// file-safe identifier, title is for humans.
type DiagnosticFunc func(name, title string, values []float64)

// Emit calls d if it is set.
func (d DiagnosticFunc) Emit(name, title string, values []float64) {
	if d != nil {
		d(name, title, values)
	}
}

// Tee sends every signal to each of fns. Nil entries are skipped and Tee
// returns nil when none are left.
func Tee(fns ...DiagnosticFunc) DiagnosticFunc {
	var set []DiagnosticFunc
	for _, fn := range fns {
		if fn != nil {
			set = append(set, fn)
		}
	}
	switch len(set) {
	case 0:
		return nil
	case 1:
		return set[0]
	}
	return func(name, title string, values []float64) {
		for _, fn := range set {
			fn(name, title, values)
		}
	}
}
