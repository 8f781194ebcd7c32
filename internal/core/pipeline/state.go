package pipeline

// State is a stage of the pipeline state machine.
type State string

const (
	StateInput           State = "input"
	StateUploading       State = "uploading"
	StateTranscribing    State = "transcribing"
	StateCreatingSession State = "creating_session"
	StateAnalyzing       State = "analyzing"
	StateComplete        State = "complete"
	StateError           State = "error"
)

// Input may jump straight to Analyzing when an existing session is re-analyzed.
var transitions = map[State][]State{
	StateInput:           {StateUploading, StateCreatingSession, StateAnalyzing, StateError},
	StateUploading:       {StateTranscribing, StateError},
	StateTranscribing:    {StateCreatingSession, StateError},
	StateCreatingSession: {StateAnalyzing, StateError},
	StateAnalyzing:       {StateComplete, StateError},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the run.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

const (
	labelPreparing    = "Preparing analysis..."
	labelUploading    = "Uploading audio for transcription..."
	labelTranscribing = "Transcribing audio..."
	labelFetching     = "Getting transcription result..."
	labelCreating     = "Creating session..."
	labelAnalyzing    = "Starting analysis..."
	labelComplete     = "Analysis complete!"
)
