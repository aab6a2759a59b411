package roster

// Status classifies the outcome of a roster operation.
type Status string

// Status values.
const (
	StatusApplied   Status = "applied"   // state changed
	StatusUnchanged Status = "unchanged" // already in the requested state
	StatusRejected  Status = "rejected"  // input failed validation
	StatusNotFound  Status = "not_found" // referenced worker does not exist
)

// Result tells the caller whether an operation took effect and, if not, why.
type Result struct {
	Status Status
	Reason error // set for Rejected and NotFound
}

// Applied returns a result for an operation that changed state.
func Applied() Result { return Result{Status: StatusApplied} }

// Unchanged returns a result for an operation that found nothing to change.
func Unchanged() Result { return Result{Status: StatusUnchanged} }

// Rejected returns a result for invalid input.
func Rejected(reason error) Result { return Result{Status: StatusRejected, Reason: reason} }

// NotFound returns a result for a lookup miss.
func NotFound(reason error) Result { return Result{Status: StatusNotFound, Reason: reason} }

// OK reports whether the operation changed state.
func (r Result) OK() bool {
	return r.Status == StatusApplied
}

// Err returns Reason, or nil when the operation was applied or unchanged.
func (r Result) Err() error {
	return r.Reason
}

func (r Result) String() string {
	if r.Reason != nil {
		return string(r.Status) + ": " + r.Reason.Error()
	}
	return string(r.Status)
}
