package task

// Outcome is the result of executing one task: either output or an error
// message, never both.
type Outcome struct {
	Output string
	Err    string
	Failed bool
}

func Success(output string) Outcome { return Outcome{Output: output} }

func Failure(msg string) Outcome { return Outcome{Err: msg, Failed: true} }

// String is the value persisted in the result record.
func (o Outcome) String() string {
	if o.Failed {
		return "ERROR: " + o.Err
	}
	return "SUCCESS: " + o.Output
}
