package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const scoringSystemPrompt = "You are a document fraud analyst. You are shown a preview of a file " +
	"uploaded to a personal document vault, together with facts about the file. Judge whether the " +
	"document appears authentic or shows signs of digital manipulation (cloned regions, inconsistent " +
	"fonts, misaligned text, editing artifacts). You must output your response as a single valid " +
	"JSON object."

const scoringUserPrompt = `Assess the attached document preview.

Respond with a JSON object with exactly these keys:
  "authentic": boolean, false only if you see concrete manipulation evidence
  "confidence": integer 0-100, how confident you are in your call
  "issues": array of short strings naming each suspicious finding (empty if none)
  "summary": one sentence summarising your assessment

File facts:
`

// VertexOracle scores authenticity with a Gemini model in JSON response mode.
type VertexOracle struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

func NewVertexOracle(ctx context.Context, projectID, region, modelName string) (*VertexOracle, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexOracle: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(scoringSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexOracle{model: model, baseClient: baseClient}, nil
}

func (o *VertexOracle) ScoreAuthenticity(ctx context.Context, req Request) (*Opinion, error) {
	if req.PreviewBase64 == "" {
		return nil, ErrUnavailable
	}
	raw, err := base64.StdEncoding.DecodeString(req.PreviewBase64)
	if err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}

	facts := fmt.Sprintf("name=%s size=%d producer=%q creator=%q",
		req.FileName, req.FileSize, req.Producer, req.Creator)

	format := strings.TrimPrefix(req.PreviewMime, "image/")
	if format == "" {
		format = "jpeg"
	}

	resp, err := o.model.GenerateContent(ctx,
		genai.Text(scoringUserPrompt+facts),
		genai.ImageData(format, raw),
	)
	if err != nil {
		// Quota and transient model errors are absence of a signal.
		return nil, ErrUnavailable
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnavailable
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, ErrUnavailable
	}

	var opinion Opinion
	if err := json.Unmarshal([]byte(text), &opinion); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w", err)
	}
	return &opinion, nil
}

func (o *VertexOracle) Close() error {
	if o.baseClient != nil {
		return o.baseClient.Close()
	}
	return nil
}
