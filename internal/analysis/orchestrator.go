package analysis

import (
	"context"
	"fmt"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/annotation"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/asset"
	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/extractor"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/logger"

	"github.com/sirupsen/logrus"
)

// Mode selects how the model response is interpreted.
type Mode string

const (
	// ModeDescriptive passes the model's natural-language answer through verbatim
	ModeDescriptive Mode = "descriptive"
	// ModeStructured extracts and validates JSON annotations from the answer
	ModeStructured Mode = "structured"
)

// Default system instructions for the two analysis modes, tuned for the
// embodied-reasoning robotics models.
const (
	DetectionSystemPrompt = `You are a precision vision-language model for robotics. Analyze the media and provide the location of key objects most relevant to executing a physical task. Point to no more than 10 items. The label returned should be an identifying name for the object detected. The answer must follow the json format: [{"point": <point>, "label": <label>}]. The points are in [y, x] format normalized to 0-1000. For regions, use {"box_2d": [y_min, x_min, y_max, x_max], "label": <label>} with the same normalization.`

	DescriptionSystemPrompt = `You are a state-of-the-art embodied reasoning model for a robotic system. Analyze the provided media input and give a thorough, natural language description of the scene. Focus on key objects, their spatial relationships, affordances, and the overall context of the environment. Provide a logical plan (in list format) for a robot to achieve the goal implied by the user's prompt. Respond only with the descriptive text and the plan; do not include any JSON or code blocks.`
)

// InferenceBackend is the multimodal generation service. Implementations
// receive the remote file reference produced by the upload backend.
type InferenceBackend interface {
	Generate(ctx context.Context, prompt, systemPrompt, fileURI, mimeType string) (string, error)
}

// Request describes a single analysis of a ready asset.
type Request struct {
	Prompt string
	Mode   Mode
	// SystemPrompt overrides the mode's default instruction when non-empty
	SystemPrompt string
	Asset        *asset.MediaAsset
}

// Orchestrator sequences one analysis: inference call, then extraction and
// validation for structured mode.
type Orchestrator struct {
	backend InferenceBackend
}

func NewOrchestrator(backend InferenceBackend) *Orchestrator {
	return &Orchestrator{backend: backend}
}

// Run performs the analysis described by req.
//
// A non-READY asset fails fast with AssetNotReady and backend failures
// surface as InferenceError. Extraction or validation failures never abort
// the analysis: the result degrades to the model's raw text annotated with
// the failure reason, because whatever the model said is still worth showing.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*annotation.Result, error) {
	if req.Asset == nil {
		return nil, apperrors.NewAssetNotReadyError("analysis requires a submitted asset", nil)
	}
	if state := req.Asset.State(); state != asset.StateReady {
		return nil, apperrors.NewAssetNotReadyError(
			fmt.Sprintf("asset %q is %s, analysis requires READY", req.Asset.DisplayName(), state), nil)
	}
	if req.Mode != ModeDescriptive && req.Mode != ModeStructured {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown analysis mode %q", req.Mode), nil)
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		if req.Mode == ModeStructured {
			systemPrompt = DetectionSystemPrompt
		} else {
			systemPrompt = DescriptionSystemPrompt
		}
	}

	raw, err := o.backend.Generate(ctx, req.Prompt, systemPrompt, req.Asset.RemoteURI(), req.Asset.MIMEType())
	if err != nil {
		return nil, apperrors.NewInferenceError(
			fmt.Sprintf("generation failed for asset %q", req.Asset.DisplayName()), err)
	}

	if req.Mode == ModeDescriptive {
		return &annotation.Result{RawText: raw}, nil
	}

	payload, err := extractor.ExtractPayload(raw)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"display_name": req.Asset.DisplayName(),
		}).Warn("Structured extraction failed, returning raw text")
		return &annotation.Result{RawText: raw, Diagnostics: []string{err.Error()}}, nil
	}

	result, err := annotation.Validate(payload)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"display_name": req.Asset.DisplayName(),
		}).Warn("Annotation validation failed, returning raw text")
		return &annotation.Result{RawText: raw, Diagnostics: []string{err.Error()}}, nil
	}

	// Every element was dropped: degrade to raw text so the caller still
	// sees what the model actually said.
	if len(result.Items) == 0 {
		return &annotation.Result{RawText: raw, Diagnostics: result.Diagnostics}, nil
	}

	return result, nil
}
