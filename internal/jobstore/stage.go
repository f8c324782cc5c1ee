package jobstore

// Stage represents the lifecycle position of a job.
type Stage string

const (
	StageCreated          Stage = "created"
	StageDownloading      Stage = "downloading"
	StageExtractingAudio  Stage = "extracting_audio"
	StageTranscribing     Stage = "transcribing"
	StageExtractingFrames Stage = "extracting_frames"
	StageGeneratingReport Stage = "generating_report"
	StageComplete         Stage = "complete"
	StageFailed           Stage = "error"
)

// PipelineOrder lists the non-failure stages in execution order.
var PipelineOrder = []Stage{
	StageCreated,
	StageDownloading,
	StageExtractingAudio,
	StageTranscribing,
	StageExtractingFrames,
	StageGeneratingReport,
	StageComplete,
}

var stageRank = func() map[Stage]int {
	ranks := make(map[Stage]int, len(PipelineOrder))
	for i, stage := range PipelineOrder {
		ranks[stage] = i
	}
	return ranks
}()

// Valid reports whether the stage is a known lifecycle value.
func (s Stage) Valid() bool {
	if s == StageFailed {
		return true
	}
	_, ok := stageRank[s]
	return ok
}

// Terminal reports whether no further transitions follow the stage.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// Rank returns the stage's position in pipeline order. StageFailed and
// unknown stages return -1.
func (s Stage) Rank() int {
	if rank, ok := stageRank[s]; ok {
		return rank
	}
	return -1
}
