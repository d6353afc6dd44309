package client

import (
	"context"
	"time"

	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// NewObservabilityMiddleware records a span, request and token metrics and a
// log entry for every provider call. The span and observer are injected into
// the context before calling next so providers can attach events to them.
//
// defaultModel labels attributes when the request names no model.
func NewObservabilityMiddleware(observer observability.Provider, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			model := effectiveModel(request.Model, defaultModel)

			ctx, span := observer.StartSpan(ctx, observability.SpanClientSendMessage,
				observability.String(observability.AttrLLMModel, model),
			)
			defer span.End()
			ctx = observability.ContextWithSpan(ctx, span)
			ctx = observability.ContextWithObserver(ctx, observer)

			observer.Debug(ctx, "llm send",
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, "llm send failed")

				observer.Error(ctx, "llm send failed",
					observability.Error(err),
					observability.Duration(observability.AttrDuration, elapsed),
					observability.String(observability.AttrLLMModel, model),
				)
				observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
					observability.String(observability.AttrStatus, "error"),
					observability.String(observability.AttrLLMModel, model),
				)
				return nil, err
			}

			recordSuccess(ctx, span, observer, response, elapsed, model)
			return response, nil
		}
	}
}

func recordSuccess(ctx context.Context, span observability.Span, observer observability.Provider, response *ai.ChatResponse, elapsed time.Duration, model string) {
	observer.Histogram(observability.MetricClientRequestDuration).Record(ctx, elapsed.Seconds(),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "success"),
		observability.String(observability.AttrLLMModel, model),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Duration(observability.AttrDuration, elapsed),
	}

	if response.Usage != nil {
		observer.Counter(observability.MetricClientTokensTotal).Add(ctx, int64(response.Usage.TotalTokens),
			observability.String(observability.AttrLLMModel, model),
		)
		usageAttrs := []observability.Attribute{
			observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
		}
		span.SetAttributes(usageAttrs...)
		logAttrs = append(logAttrs, usageAttrs...)
	}

	if response.Id != "" {
		span.SetAttributes(observability.String(observability.AttrLLMResponseID, response.Id))
	}

	span.SetStatus(observability.StatusOK, "")
	observer.Info(ctx, "llm send completed", logAttrs...)
}
