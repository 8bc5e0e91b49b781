package spcall

// Outcome tells whether a call reached the database.
type Outcome int

const (
	// OutcomeExecuted means the procedure ran and its result sets were read.
	OutcomeExecuted Outcome = iota + 1
	// OutcomeSkipped means the profile's result-set count did not match the
	// call shape, so nothing was sent to the database.
	OutcomeSkipped
	// OutcomeFailed accompanies an *InvocationError.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Status is returned by every call.
type Status struct {
	Binding BindOutcome
	Outcome Outcome
}

func (s Status) Executed() bool { return s.Outcome == OutcomeExecuted }

type Single[T any] struct {
	Status
	Rows []T
}

type Double[T, TM any] struct {
	Status
	First  []T
	Second []TM
}

type Triple[T, TM, TN any] struct {
	Status
	First  []T
	Second []TM
	Third  []TN
}
