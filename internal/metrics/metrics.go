package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	MutationsApplied Counter
	MutationsSkipped Counter
	PersistFailed    Counter
	Notifications    Counter
	LoadCorrupt      Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		MutationsApplied: n,
		MutationsSkipped: n,
		PersistFailed:    n,
		Notifications:    n,
		LoadCorrupt:      n,
	}
}
