package constants

// Stage is a state of the per-request pipeline.
type Stage string

// Values are persisted in run_log.stage.
const (
	StageReceived      Stage = "received"
	StageSniffed       Stage = "sniffed"
	StageTextExtracted Stage = "text_extracted"
	StageLLMExtracted  Stage = "llm_extracted"
	StageCleaned       Stage = "cleaned"
	StageFeaturesBuilt Stage = "features_built"
	StageScored        Stage = "scored"
	StageDone          Stage = "done"
)

// Step names the work performed while moving into the next state; a failure is reported with the step.
type Step string

const (
	StepValidateDocument Step = "validate_document"
	StepExtractText      Step = "extract_text"
	StepLLMExtraction    Step = "llm_extraction"
	StepCleanValidate    Step = "clean_validate"
	StepBuildInstances   Step = "build_instances"
	StepPredictFraud     Step = "predict_fraud"
)

// RunStatus is the terminal status for rows in run_log.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusOK      RunStatus = "OK"
	RunStatusFailed  RunStatus = "FAILED"
)
