package ddl

// Result reports what a helper did.
type Result string

const (
	// ResultApplied means the object was absent and the statement executed.
	ResultApplied Result = "applied"
	// ResultSkipped means the object already exists and nothing was executed.
	ResultSkipped Result = "skipped"
)
