package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"backend-roomreq/internal/models"
	"backend-roomreq/internal/openrouter"
)

// ChunkFunc receives each decoded content increment from the stream.
type ChunkFunc func(content string)

// streamChunk is one decoded SSE data payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Relay runs one completion against the gateway using an explicit two-step
// strategy: tryStreaming first, then tryFallback with a single
// non-streaming request when the stream fails. The retry policy lives
// here and nowhere else.
type Relay struct {
	gateway *openrouter.Client
	log     *zap.SugaredLogger
}

func NewRelay(gateway *openrouter.Client, log *zap.SugaredLogger) *Relay {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Relay{gateway: gateway, log: log}
}

// ModelName returns the display name of the model the use-case tag maps to.
func (r *Relay) ModelName(useCase models.UseCase) string {
	return r.gateway.ModelFor(useCase).Name
}

// Complete returns the finalized assistant content. onStart fires once when
// a stream has been acquired, before the first chunk; onChunk fires per
// decoded increment. When streaming fails the accumulated content is
// discarded and the fallback response replaces it wholesale.
func (r *Relay) Complete(ctx context.Context, messages []openrouter.Message, useCase models.UseCase, onStart func(), onChunk ChunkFunc) (string, error) {
	content, err := r.tryStreaming(ctx, messages, useCase, onStart, onChunk)
	if err == nil {
		return content, nil
	}

	r.log.Warnw("streaming failed, falling back to regular response", "error", err)
	return r.tryFallback(ctx, messages, useCase)
}

func (r *Relay) tryStreaming(ctx context.Context, messages []openrouter.Message, useCase models.UseCase, onStart func(), onChunk ChunkFunc) (string, error) {
	stream, err := r.gateway.StreamMessage(ctx, messages, useCase)
	if err != nil {
		return "", err
	}
	if stream == nil {
		return "", fmt.Errorf("stream not available")
	}
	defer stream.Close()

	if onStart != nil {
		onStart()
	}

	var content strings.Builder
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed chunks are skipped, not fatal.
			r.log.Debugw("skipping invalid JSON chunk", "data", data)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}

	r.log.Debugw("streaming completed", "contentLength", content.Len())
	return content.String(), nil
}

func (r *Relay) tryFallback(ctx context.Context, messages []openrouter.Message, useCase models.UseCase) (string, error) {
	resp, err := r.gateway.SendMessage(ctx, messages, useCase)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}
