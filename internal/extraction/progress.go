package extraction

// Progress is a status update from a long-running extraction step. Progress
// runs from 0 to 1.
type Progress struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// ProgressFunc receives progress updates. A nil ProgressFunc discards them.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(status string, progress float64) {
	if f != nil {
		f(Progress{Status: status, Progress: progress})
	}
}

// scaled maps a step's own 0..1 range onto [offset, offset+span] of f and
// prefixes its status messages.
func (f ProgressFunc) scaled(offset, span float64, prefix string) ProgressFunc {
	if f == nil {
		return nil
	}
	return func(p Progress) {
		f(Progress{Status: prefix + p.Status, Progress: offset + p.Progress*span})
	}
}

// monotonic wraps f so that the reported value never moves backwards, which
// happens when a failed step hands over to a fallback that starts from zero.
func monotonic(f ProgressFunc) ProgressFunc {
	if f == nil {
		return nil
	}
	high := 0.0
	return func(p Progress) {
		if p.Progress < high {
			p.Progress = high
		}
		high = p.Progress
		f(p)
	}
}
