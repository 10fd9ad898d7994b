package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// OpenAI generates text through any OpenAI-compatible chat endpoint
type OpenAI struct {
	chat  model.BaseChatModel
	model string
}

func NewOpenAI(ctx context.Context, apiKey, baseURL, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for openai models")
	}
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return &OpenAI{chat: chat, model: modelName}, nil
}

// NewOpenAIWith wraps an existing chat model
func NewOpenAIWith(chat model.BaseChatModel, modelName string) *OpenAI {
	return &OpenAI{chat: chat, model: modelName}
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}
	resp, err := o.chat.Generate(ctx, messages, model.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", errors.New("empty response from chat model")
	}
	return resp.Content, nil
}
