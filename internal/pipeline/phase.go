package pipeline

// Phase names one execution pass over tasks.
type Phase string

const (
	PhaseCollect  Phase = "collect"
	PhaseValidate Phase = "validate"
	PhasePublish  Phase = "publish"
	PhaseFinalize Phase = "finalize"
)

func (p Phase) String() string { return string(p) }
