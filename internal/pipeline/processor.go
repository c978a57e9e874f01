package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-tracker/constants"
	"github.com/joseph-ayodele/claims-tracker/internal/claims"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
	"github.com/joseph-ayodele/claims-tracker/internal/llm"
	"github.com/joseph-ayodele/claims-tracker/internal/ocr"
	"github.com/joseph-ayodele/claims-tracker/internal/scoring"
)

// PreviewChars caps the text preview returned by Preview.
const PreviewChars = 1200

// TextExtractor turns an inspected upload into text.
type TextExtractor interface {
	Extract(ctx context.Context, path string, report ocr.InspectionReport) (ocr.ExtractionResult, error)
}

// RunRecorder persists the outcome of a run. Optional.
type RunRecorder interface {
	Record(ctx context.Context, run entity.RunRecord) error
}

// Processor runs one upload through sniff, extract, LLM, clean, features and score.
// Every run is sequential and owns its upload.
type Processor struct {
	Logger    *slog.Logger
	Extractor TextExtractor
	Fields    llm.FieldExtractor
	Scorer    scoring.Scorer
	Runs      RunRecorder
}

func NewProcessor(logger *slog.Logger, extractor TextExtractor, fields llm.FieldExtractor, scorer scoring.Scorer, runs RunRecorder) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extractor: extractor, Fields: fields, Scorer: scorer, Runs: runs}
}

// FraudResult is the scorer verdict plus the derived risk score.
type FraudResult struct {
	IsFraudulent bool    `json:"is_fraudulent"`
	Prediction   string  `json:"prediction"`
	Probability  float64 `json:"probability"`
	RiskScore    float64 `json:"risk_score"`
}

// Result accumulates everything a run produced up to the stage it reached.
type Result struct {
	RunID               uuid.UUID             `json:"run_id"`
	RequestID           string                `json:"request_id"`
	FileName            string                `json:"file_name"`
	Stage               constants.Stage       `json:"stage"`
	Inspection          ocr.InspectionReport  `json:"inspection"`
	Extraction          *ocr.ExtractionResult `json:"-"`
	CharactersExtracted int                   `json:"characters_extracted"`
	TextPreview         string                `json:"text_preview,omitempty"`
	LLMSource           string                `json:"llm_source,omitempty"`
	LLMFailures         []llm.AttemptFailure  `json:"llm_failures,omitempty"`
	RawModelJSON        map[string]any        `json:"raw_model_json,omitempty"`
	CleanedData         *claims.CleanClaim    `json:"cleaned_data,omitempty"`
	ModelInput          *claims.Instances     `json:"model_input,omitempty"`
	Fraud               *FraudResult          `json:"fraud_result,omitempty"`
}

// RiskScore converts a probability into a percentage with two decimals.
func RiskScore(probability float64) float64 {
	return math.Round(probability*100*100) / 100
}

type runState struct {
	upload *Upload
	text   string
	res    Result
}

type stage struct {
	step    constants.Step
	reaches constants.Stage
	run     func(ctx context.Context, st *runState) error
}

func (p *Processor) stages() []stage {
	return []stage{
		{constants.StepValidateDocument, constants.StageSniffed, p.sniff},
		{constants.StepExtractText, constants.StageTextExtracted, p.extractText},
		{constants.StepLLMExtraction, constants.StageLLMExtracted, p.extractFields},
		{constants.StepCleanValidate, constants.StageCleaned, p.clean},
		{constants.StepBuildInstances, constants.StageFeaturesBuilt, p.buildInstances},
		{constants.StepPredictFraud, constants.StageScored, p.score},
	}
}

// Inspect sniffs the upload without extracting anything, then removes it.
func (p *Processor) Inspect(ctx context.Context, u *Upload) (ocr.InspectionReport, error) {
	defer p.release(u)
	report, err := ocr.InspectFile(u.Path, u.OriginalName, u.MimeType)
	if err != nil {
		return ocr.InspectionReport{}, &common.StageError{
			Step: constants.StepValidateDocument,
			Err:  common.NewExtractionError("cannot read uploaded file", err),
		}
	}
	p.Logger.Info("pipeline.inspect.ok",
		"file", u.OriginalName,
		"size_bytes", report.SizeBytes,
		"is_pdf", report.IsPDF,
		"is_image", report.IsImage,
	)
	return report, nil
}

// Preview runs through text extraction and returns the first PreviewChars characters.
func (p *Processor) Preview(ctx context.Context, u *Upload) (Result, error) {
	res, err := p.run(ctx, u, constants.StageTextExtracted)
	if err == nil {
		res.TextPreview = firstRunes(res.TextPreview, PreviewChars)
	}
	return res, err
}

// BuildPayload runs through feature construction without scoring.
func (p *Processor) BuildPayload(ctx context.Context, u *Upload) (Result, error) {
	return p.run(ctx, u, constants.StageFeaturesBuilt)
}

// Process runs the full pipeline.
func (p *Processor) Process(ctx context.Context, u *Upload) (Result, error) {
	return p.run(ctx, u, constants.StageDone)
}

func (p *Processor) run(ctx context.Context, u *Upload, until constants.Stage) (Result, error) {
	defer p.release(u)

	ctx, reqID := common.EnsureRequestID(ctx)
	started := time.Now()
	st := &runState{
		upload: u,
		res: Result{
			RunID:     u.ID,
			RequestID: reqID,
			FileName:  u.OriginalName,
			Stage:     constants.StageReceived,
		},
	}
	log := p.Logger.With("run_id", u.ID, "request_id", reqID, "file", u.OriginalName)
	log.Info("pipeline.run.start", "until", until)

	var runErr error
	for _, s := range p.stages() {
		t0 := time.Now()
		if err := s.run(ctx, st); err != nil {
			runErr = &common.StageError{Step: s.step, Err: err}
			log.Error("pipeline.stage.failed",
				"step", s.step,
				"stage", st.res.Stage,
				"class", common.Classify(err),
				"elapsed_ms", time.Since(t0).Milliseconds(),
				"err", err,
			)
			break
		}
		st.res.Stage = s.reaches
		log.Debug("pipeline.stage.ok", "stage", s.reaches, "elapsed_ms", time.Since(t0).Milliseconds())
		if s.reaches == until {
			break
		}
	}
	if runErr == nil && until == constants.StageDone {
		st.res.Stage = constants.StageDone
	}

	p.record(ctx, st, runErr, started)
	if runErr != nil {
		return st.res, runErr
	}
	log.Info("pipeline.run.ok", "stage", st.res.Stage, "elapsed_ms", time.Since(started).Milliseconds())
	return st.res, nil
}

func (p *Processor) sniff(_ context.Context, st *runState) error {
	u := st.upload
	report, err := ocr.InspectFile(u.Path, u.OriginalName, u.MimeType)
	if err != nil {
		return common.NewExtractionError("cannot read uploaded file", err)
	}
	st.res.Inspection = report
	if report.Format() == constants.FormatUnsupported {
		return common.NewExtractionError("Unsupported file type", nil)
	}
	return nil
}

func (p *Processor) extractText(ctx context.Context, st *runState) error {
	if p.Extractor == nil {
		return common.NewAppError(common.CodeInternal, "text extractor not configured", nil)
	}
	res, err := p.Extractor.Extract(ctx, st.upload.Path, st.res.Inspection)
	if err != nil {
		return err
	}
	st.text = res.Text
	st.res.Extraction = &res
	st.res.CharactersExtracted = len([]rune(res.Text))
	st.res.TextPreview = res.Text
	return nil
}

func (p *Processor) extractFields(ctx context.Context, st *runState) error {
	// Preview text is only kept when the run stops right after extraction.
	st.res.TextPreview = ""
	if p.Fields == nil {
		return common.NewAppError(common.CodeInternal, "field extractor not configured", nil)
	}
	ext, err := p.Fields.Extract(ctx, st.text)
	st.res.LLMFailures = ext.Failures
	if err != nil {
		return err
	}
	st.res.LLMSource = ext.Source
	st.res.RawModelJSON = ext.Fields
	return nil
}

func (p *Processor) clean(_ context.Context, st *runState) error {
	c := claims.Normalize(st.res.RawModelJSON)
	st.res.CleanedData = &c
	return nil
}

func (p *Processor) buildInstances(_ context.Context, st *runState) error {
	in := claims.BuildInstances(*st.res.CleanedData, st.res.RawModelJSON)
	st.res.ModelInput = &in
	return nil
}

func (p *Processor) score(ctx context.Context, st *runState) error {
	if p.Scorer == nil {
		return common.NewAppError(common.CodeInternal, "scorer not configured", nil)
	}
	pred, err := p.Scorer.Score(ctx, st.res.ModelInput.Instances[0])
	if err != nil {
		return err
	}
	st.res.Fraud = &FraudResult{
		IsFraudulent: pred.IsFraudulent(),
		Prediction:   pred.Label,
		Probability:  pred.Probability,
		RiskScore:    RiskScore(pred.Probability),
	}
	return nil
}

func (p *Processor) release(u *Upload) {
	if u == nil {
		return
	}
	if err := u.Remove(); err != nil {
		p.Logger.Warn("pipeline.upload.cleanup_failed", "path", u.Path, "err", err)
	}
}

func (p *Processor) record(ctx context.Context, st *runState, runErr error, started time.Time) {
	if p.Runs == nil {
		return
	}
	res := st.res
	rec := entity.RunRecord{
		ID:         res.RunID,
		RequestID:  res.RequestID,
		FileName:   res.FileName,
		SizeBytes:  st.upload.Size,
		Stage:      string(res.Stage),
		Status:     string(constants.RunStatusOK),
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if st.upload.MimeType != "" {
		rec.MimeType = &st.upload.MimeType
	}
	if res.LLMSource != "" {
		rec.LLMSource = &res.LLMSource
	}
	if res.ModelInput != nil {
		if b, err := json.Marshal(res.ModelInput); err == nil {
			rec.ModelInput = b
		}
	}
	if res.Fraud != nil {
		rec.Prediction = &res.Fraud.Prediction
		rec.Probability = &res.Fraud.Probability
		rec.RiskScore = &res.Fraud.RiskScore
	}
	if runErr != nil {
		rec.Status = string(constants.RunStatusFailed)
		msg := runErr.Error()
		class := string(common.Classify(runErr))
		rec.ErrorMessage = &msg
		rec.ErrorClass = &class
		if step, ok := common.StepOf(runErr); ok {
			s := string(step)
			rec.FailedStep = &s
		}
	}

	// A cancelled request still gets its row.
	ctx = context.WithoutCancel(ctx)
	if err := p.Runs.Record(ctx, rec); err != nil {
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			err = common.NewAppError(common.CodeRecording, "record run", err)
		}
		p.Logger.Warn("pipeline.run.record_failed", "run_id", rec.ID, "err", err)
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
