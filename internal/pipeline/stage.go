package pipeline

// Stage is a step of a dubbing run. Runs only move forward; Failed is terminal.
type Stage int

const (
	StageTranscribing Stage = iota
	StageTranslating
	StageSynthesizing
	StageComposing
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageTranscribing: "transcribing",
	StageTranslating:  "translating",
	StageSynthesizing: "synthesizing",
	StageComposing:    "composing",
	StageDone:         "done",
	StageFailed:       "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Next returns the stage that follows s on success.
func (s Stage) Next() Stage {
	if s.Terminal() {
		return s
	}
	return s + 1
}

// ParseStage is the inverse of String; unknown names map to StageFailed.
func ParseStage(name string) Stage {
	for stage, n := range stageNames {
		if n == name {
			return stage
		}
	}
	return StageFailed
}
