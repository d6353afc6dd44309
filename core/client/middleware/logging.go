package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/internal/utils"
	"github.com/leofalp/scriptgraph/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits.
type LogLevel int

const (
	// LogLevelMinimal logs the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds truncated prompt and reply text. It logs raw
	// page content and must not be used in production.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware writes an slog entry before and after every call.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", responseAttrs(response, elapsed, level)...)
			return response, nil
		}
	}
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("messages", len(request.Messages)))
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		attrs = append(attrs, slog.String("prompt", utils.TruncateString(request.Messages[0].Content, truncateLen)))
	}
	return attrs
}

func responseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}
	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("content", utils.TruncateString(response.Content, truncateLen)))
	}
	return attrs
}
