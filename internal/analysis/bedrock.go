package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

const analysisSystemPrompt = `You analyze transcripts of outbound sales calls made by a voice assistant.
Respond with a single JSON object and nothing else, using exactly these keys:
  "sentimentScore": number between -1.0 (hostile) and 1.0 (enthusiastic)
  "interestLevel": one of "high", "medium", "low", "none"
  "isInterested": boolean, whether the customer showed buying interest
  "summary": one or two sentences describing how the call went
  "nextSteps": array of short follow-up actions, empty if none`

// BedrockAnalyzer scores transcripts with a Bedrock-hosted model.
type BedrockAnalyzer struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockAnalyzer wires the analyzer to a Bedrock runtime client.
func NewBedrockAnalyzer(api bedrockConverseAPI, modelID string) (*BedrockAnalyzer, error) {
	if api == nil {
		return nil, errors.New("analysis: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("analysis: bedrock model id is required")
	}
	return &BedrockAnalyzer{api: api, modelID: modelID}, nil
}

// Analyze sends the transcript to the model and parses its JSON verdict.
func (a *BedrockAnalyzer) Analyze(ctx context.Context, transcript string) (*Analysis, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.New("analysis: transcript is empty")
	}

	out, err := a.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(a.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: analysisSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "Call transcript:\n\n" + transcript},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(1024),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: bedrock converse: %w", err)
	}

	text, err := extractOutputText(out)
	if err != nil {
		return nil, err
	}
	return parseVerdict(text)
}

func extractOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("analysis: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("analysis: bedrock response did not include a message output")
	}
	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("analysis: bedrock response contained no text content blocks")
	}
	return text, nil
}

// parseVerdict tolerates models that wrap the JSON in prose or code fences.
func parseVerdict(text string) (*Analysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("analysis: no JSON object in model output: %s", truncate(text, 120))
	}
	var verdict Analysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("analysis: parse model output: %w", err)
	}
	if verdict.SentimentScore > 1 {
		verdict.SentimentScore = 1
	}
	if verdict.SentimentScore < -1 {
		verdict.SentimentScore = -1
	}
	return &verdict, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
