package models

import "time"

// Window описывает полуоткрытый интервал [Start, End) бронирования.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// Valid проверяет, что обе границы заданы и start < end.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && !w.End.IsZero() && w.Start.Before(w.End)
}

// Overlaps использует строгое сравнение: соприкасающиеся границы не пересекаются.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Expand расширяет окно на буферы подготовки и завершения в минутах.
func (w Window) Expand(preparationMinutes, finalizationMinutes int64) Window {
	return Window{
		Start: w.Start.Add(-time.Duration(preparationMinutes) * time.Minute),
		End:   w.End.Add(time.Duration(finalizationMinutes) * time.Minute),
	}
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
