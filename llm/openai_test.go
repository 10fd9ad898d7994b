package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type recordingChat struct {
	got         []*schema.Message
	temperature *float32
	reply       string
}

func (r *recordingChat) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	r.got = in
	r.temperature = model.GetCommonOptions(nil, opts...).Temperature
	return schema.AssistantMessage(r.reply, nil), nil
}

func (r *recordingChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestOpenAIGenerateSendsPromptAndTemperature(t *testing.T) {
	chat := &recordingChat{reply: "Positive"}
	gen := NewOpenAIWith(chat, "gpt-4o-mini")

	out, err := gen.Generate(context.Background(), "classify this", 0)
	if err != nil || out != "Positive" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if len(chat.got) != 1 || chat.got[0].Role != schema.User || chat.got[0].Content != "classify this" {
		t.Fatalf("unexpected messages: %+v", chat.got)
	}
	if chat.temperature == nil || *chat.temperature != 0 {
		t.Fatalf("temperature not forwarded")
	}
}

func TestOpenAIEmptyReplyIsError(t *testing.T) {
	gen := NewOpenAIWith(&recordingChat{}, "m")
	if _, err := gen.Generate(context.Background(), "p", 0.3); err == nil {
		t.Fatalf("expected error on empty reply")
	}
}
