package usecase

// ProgressFunc is called after each unit of work. item names the unit just
// finished. A nil ProgressFunc is valid.
type ProgressFunc func(processed, total int, item string)

func (f ProgressFunc) report(processed, total int, item string) {
	if f != nil {
		f(processed, total, item)
	}
}
