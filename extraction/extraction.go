// Package extraction turns a photographed medical document into a structured
// prescription via a vision-language model call plus defensive parsing.
//
// The model's output is untrusted: it may wrap JSON in code fences, omit
// keys, or return something that is not JSON at all. The parser degrades
// gracefully: a partial extraction is more useful to the patient than a hard
// failure, so a parse error yields an all-empty result rather than an error.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hengadev/medikeep"
	"github.com/hengadev/medikeep/internal/textutil"
)

// InstructionPrompt is the fixed instruction sent with every document photo.
// It demands the exact JSON shape the parser reads; the model has no
// guaranteed schema compliance, hence the defensive parse.
const InstructionPrompt = `Extract details from this prescription into JSON.
{ "doctor": "", "date": "", "diagnosis": "", "medicines": [{ "name": "", "dosage": "" }] }
Return ONLY the raw JSON.`

// VisionModel is the vision-language model boundary: image plus instruction
// in, free text out. Transport and model-side failures surface as errors;
// the pipeline never retries on its own.
type VisionModel interface {
	AnalyzeImage(ctx context.Context, image []byte, instruction string) (string, error)
}

// Pipeline is the image-to-structured-data conversion flow. Stateless per
// invocation; safe for concurrent use.
type Pipeline struct {
	model  VisionModel
	logger zerolog.Logger
}

// New creates an extraction pipeline over the given vision model.
func New(model VisionModel, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		model:  model,
		logger: logger.With().Str("component", "extraction").Logger(),
	}
}

// Extract sends the document photo to the vision model and parses the reply.
//
// A transport or model error is returned as-is (wrapped in
// medikeep.ErrModelUnavailable) and nothing is persisted on that path. A
// reply that fails to parse is not an error: it yields an all-empty result,
// which callers distinguish from success via PrescriptionResult.IsEmpty.
func (p *Pipeline) Extract(ctx context.Context, image []byte) (medikeep.PrescriptionResult, error) {
	raw, err := p.model.AnalyzeImage(ctx, image, InstructionPrompt)
	if err != nil {
		return medikeep.PrescriptionResult{}, fmt.Errorf("%w: %v", medikeep.ErrModelUnavailable, err)
	}

	result := p.Parse(raw)
	if result.IsEmpty() {
		p.logger.Warn().Int("reply_len", len(raw)).Msg("extraction produced no structured data")
	}
	return result, nil
}

// Parse converts the model's free-form reply into a PrescriptionResult.
// Code fences and stray whitespace are stripped first; missing keys default
// to empty values; anything unparseable yields the all-empty result.
func (p *Pipeline) Parse(raw string) medikeep.PrescriptionResult {
	cleaned := textutil.StripCodeFences(raw)

	var result medikeep.PrescriptionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		p.logger.Debug().Err(err).Msg("model reply is not valid JSON")
		return medikeep.PrescriptionResult{}
	}
	return result
}

// InferRecordType classifies a parsed result: a non-empty medicines list
// makes it a prescription, anything else is OTHER. Stray medicines on an
// OTHER result are discarded at save time, not here.
func InferRecordType(result medikeep.PrescriptionResult) medikeep.RecordType {
	if len(result.Medicines) > 0 {
		return medikeep.RecordTypePrescription
	}
	return medikeep.RecordTypeOther
}
