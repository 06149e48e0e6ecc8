package backend

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/asset"

	"google.golang.org/genai"
)

// GeminiBackend implements both the upload backend and the inference backend
// on the Gemini API: media goes through the Files service, generation through
// the configured multimodal model.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiBackend creates a backend bound to one model and API key.
func NewGeminiBackend(ctx context.Context, apiKey, model string, temperature float64) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		client:      client,
		model:       model,
		temperature: float32(temperature),
	}, nil
}

// Upload registers the media bytes with the Gemini Files service
func (b *GeminiBackend) Upload(ctx context.Context, data []byte, displayName, mimeType string) (*asset.RemoteFile, error) {
	file, err := b.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		DisplayName: displayName,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("file upload failed: %w", err)
	}

	return &asset.RemoteFile{
		ID:       file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
		State:    mapFileState(file.State),
	}, nil
}

// GetState re-queries the processing state of an uploaded file
func (b *GeminiBackend) GetState(ctx context.Context, remoteID string) (asset.RemoteState, error) {
	file, err := b.client.Files.Get(ctx, remoteID, nil)
	if err != nil {
		return "", fmt.Errorf("file state query failed: %w", err)
	}
	return mapFileState(file.State), nil
}

// Delete removes an uploaded file from the Files service
func (b *GeminiBackend) Delete(ctx context.Context, remoteID string) error {
	if _, err := b.client.Files.Delete(ctx, remoteID, nil); err != nil {
		return fmt.Errorf("file delete failed: %w", err)
	}
	return nil
}

// Generate runs one inference call against the uploaded media
func (b *GeminiBackend) Generate(ctx context.Context, prompt, systemPrompt, fileURI, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromURI(fileURI, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(b.temperature),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	return resp.Text(), nil
}

func mapFileState(state genai.FileState) asset.RemoteState {
	switch state {
	case genai.FileStateActive:
		return asset.RemoteReady
	case genai.FileStateFailed:
		return asset.RemoteFailed
	default:
		return asset.RemoteProcessing
	}
}
