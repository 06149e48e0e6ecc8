package service

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/analysis"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/annotation"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/asset"
	apperrors "github.com/Pr0gramm3r2022/3DSpatialAgents/internal/errors"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/logger"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/observer"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/repository"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/storage"
	"github.com/Pr0gramm3r2022/3DSpatialAgents/pkg/validation"
)

// MediaSource describes where the media bytes for a submission come from.
// Exactly one of Data, URL or BlobURL must be set.
type MediaSource struct {
	Data        []byte
	URL         string
	BlobURL     string
	DisplayName string
}

// AnalysisService is the caller-facing API of the core: submit a media
// payload into a named session, wait for remote readiness, run analyses.
type AnalysisService interface {
	SubmitAsset(ctx context.Context, sessionID string, src MediaSource) (*asset.MediaAsset, error)
	AwaitReady(ctx context.Context, sessionID string) (*asset.MediaAsset, error)
	CurrentAsset(sessionID string) *asset.MediaAsset
	RunAnalysis(ctx context.Context, sessionID, prompt, systemPrompt string, mode analysis.Mode) (*annotation.Result, bool, error)
}

type analysisService struct {
	manager      *asset.Manager
	orchestrator *analysis.Orchestrator
	fetcher      storage.MediaFetcher
	blobs        storage.BlobStorage
	results      repository.ResultRepository
	urlValidator *validation.URLValidator
	events       observer.Subject

	mu       sync.Mutex
	sessions map[string]*asset.Slot
}

// NewAnalysisService creates the end-to-end analysis service. blobs may be
// nil when no blob storage is configured.
func NewAnalysisService(
	manager *asset.Manager,
	orchestrator *analysis.Orchestrator,
	fetcher storage.MediaFetcher,
	blobs storage.BlobStorage,
	results repository.ResultRepository,
	events observer.Subject,
) AnalysisService {
	return &analysisService{
		manager:      manager,
		orchestrator: orchestrator,
		fetcher:      fetcher,
		blobs:        blobs,
		results:      results,
		urlValidator: validation.NewURLValidator(),
		events:       events,
	}
}

// slot returns the session's asset slot, creating it on first use
func (s *analysisService) slot(sessionID string) *asset.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]*asset.Slot)
	}
	slot, ok := s.sessions[sessionID]
	if !ok {
		slot = &asset.Slot{}
		s.sessions[sessionID] = slot
	}
	return slot
}

// CurrentAsset returns the asset occupying the session slot, nil when empty
func (s *analysisService) CurrentAsset(sessionID string) *asset.MediaAsset {
	return s.slot(sessionID).Current()
}

// SubmitAsset resolves the media bytes and drives them into the session slot
func (s *analysisService) SubmitAsset(ctx context.Context, sessionID string, src MediaSource) (*asset.MediaAsset, error) {
	data, displayName, err := s.resolveSource(ctx, src)
	if err != nil {
		return nil, err
	}

	a, err := s.manager.Submit(ctx, s.slot(sessionID), data, displayName)

	event := observer.AnalysisEvent{
		EventType:   observer.AssetSubmitted,
		Timestamp:   time.Now(),
		SessionID:   sessionID,
		DisplayName: displayName,
		Success:     err == nil,
	}
	if err != nil {
		event.EventType = observer.AssetFailed
		event.ErrorMessage = err.Error()
	}
	s.events.NotifyObservers(ctx, event)

	return a, err
}

// AwaitReady blocks until the session's asset leaves PROCESSING
func (s *analysisService) AwaitReady(ctx context.Context, sessionID string) (*asset.MediaAsset, error) {
	a := s.slot(sessionID).Current()
	if a == nil {
		return nil, apperrors.NewNotFoundError("no asset submitted for this session", nil)
	}

	a, err := s.manager.AwaitReady(ctx, a)
	if err != nil {
		return a, err
	}

	event := observer.AnalysisEvent{
		Timestamp:   time.Now(),
		SessionID:   sessionID,
		DisplayName: a.DisplayName(),
		Success:     a.State() == asset.StateReady,
	}
	if a.State() == asset.StateReady {
		event.EventType = observer.AssetReady
	} else {
		event.EventType = observer.AssetFailed
		event.ErrorMessage = "remote processing failed"
	}
	s.events.NotifyObservers(ctx, event)

	return a, nil
}

// RunAnalysis executes one analysis against the session's ready asset. The
// returned bool reports whether the result came from the repository instead
// of a fresh inference call.
func (s *analysisService) RunAnalysis(ctx context.Context, sessionID, prompt, systemPrompt string, mode analysis.Mode) (*annotation.Result, bool, error) {
	a := s.slot(sessionID).Current()
	if a == nil {
		return nil, false, apperrors.NewAssetNotReadyError("no asset submitted for this session", nil)
	}

	key := repository.ResultKey(a.RemoteID(), string(mode), systemPrompt+"\x00"+prompt)
	if a.State() == asset.StateReady {
		if cached, err := s.results.Get(ctx, key); err == nil {
			return cached, true, nil
		} else if !errors.Is(err, repository.ErrResultNotFound) {
			logger.WithError(err).Warn("Result repository lookup failed, running fresh analysis")
		}
	}

	started := time.Now()
	result, err := s.orchestrator.Run(ctx, analysis.Request{
		Prompt:       prompt,
		Mode:         mode,
		SystemPrompt: systemPrompt,
		Asset:        a,
	})

	event := observer.AnalysisEvent{
		Timestamp:      time.Now(),
		SessionID:      sessionID,
		DisplayName:    a.DisplayName(),
		ProcessingTime: time.Since(started),
		Success:        err == nil,
		Metadata:       map[string]interface{}{"mode": string(mode)},
	}
	if err != nil {
		event.EventType = observer.AnalysisFailed
		event.ErrorMessage = err.Error()
		s.events.NotifyObservers(ctx, event)
		return nil, false, err
	}
	event.EventType = observer.AnalysisCompleted
	s.events.NotifyObservers(ctx, event)

	if saveErr := s.results.Save(ctx, key, result); saveErr != nil {
		logger.WithError(saveErr).Warn("Failed to store analysis result")
	}

	return result, false, nil
}

func (s *analysisService) resolveSource(ctx context.Context, src MediaSource) ([]byte, string, error) {
	sources := 0
	for _, set := range []bool{len(src.Data) > 0, src.URL != "", src.BlobURL != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, "", apperrors.NewValidationError("exactly one of data, url or blob_url must be provided", nil)
	}

	switch {
	case len(src.Data) > 0:
		name := src.DisplayName
		if name == "" {
			return nil, "", apperrors.NewValidationError("display_name is required for inline media bytes", nil)
		}
		return src.Data, name, nil

	case src.URL != "":
		if err := s.urlValidator.ValidateMediaURL(src.URL); err != nil {
			return nil, "", err
		}
		data, _, err := s.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, "", apperrors.NewValidationError("failed to fetch media from URL", err)
		}
		return data, displayNameFor(src.DisplayName, src.URL), nil

	default:
		if s.blobs == nil {
			return nil, "", apperrors.NewValidationError("blob storage is not configured", nil)
		}
		data, _, err := s.blobs.Fetch(ctx, src.BlobURL)
		if err != nil {
			return nil, "", apperrors.NewValidationError("failed to fetch media from blob storage", err)
		}
		return data, displayNameFor(src.DisplayName, src.BlobURL), nil
	}
}

func displayNameFor(explicit, rawURL string) string {
	if explicit != "" {
		return explicit
	}
	name := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	if name == "." || name == "/" || name == "" {
		return "upload.bin"
	}
	return name
}
