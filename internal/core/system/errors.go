package system

import "fmt"

// TaskError is a panic recovered from a system or condition. The pass that
// hit it keeps running; the error is reported from Scheduler.Run.
type TaskError struct {
	System string
	Value  any
	Stack  []byte
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("system %s panicked: %v", e.System, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *TaskError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
