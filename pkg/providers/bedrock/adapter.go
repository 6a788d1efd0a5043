// Package bedrock adapts Anthropic models running on AWS Bedrock to the
// llm.Adapter contract.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/harunnryd/tutorcast/pkg/llm"
)

const anthropicVersion = "bedrock-2023-05-31"

type Config struct {
	Model     string
	Region    string
	MaxTokens int
}

type Adapter struct {
	cfg    Config
	client *bedrockruntime.Client
}

// NewAdapter builds a Bedrock adapter using the default AWS credential chain.
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Adapter{
		cfg:    cfg,
		client: bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

func (a *Adapter) Name() string { return "bedrock" }

type invokeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	Messages         []invokeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature,omitempty"`
	System           string          `json:"system,omitempty"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *Adapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	payload := invokeRequest{
		AnthropicVersion: anthropicVersion,
		Messages:         []invokeMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:        a.cfg.MaxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return llm.Response{}, fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.cfg.Model),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return llm.Response{}, fmt.Errorf("invoke bedrock model: %w", err)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return llm.Response{}, fmt.Errorf("unmarshal bedrock response: %w", err)
	}
	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return llm.Response{
		Text:         text,
		FinishReason: parsed.StopReason,
		Usage: llm.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

var _ llm.Adapter = (*Adapter)(nil)
