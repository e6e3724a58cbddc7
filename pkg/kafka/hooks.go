package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. BeforeHandle may replace the context;
// returning an error skips the handler and treats the message as failed permanently.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, km kafka.Message, attempts int, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, int, error) {}

// HookFuncs adapts plain functions; nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, int, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, attempts int, err error) {
	if h.After != nil {
		h.After(ctx, km, attempts, err)
	}
}

// HookChain runs hooks in order; the first BeforeHandle error stops the chain.
type HookChain []ConsumerHook

func (hc HookChain) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	for _, h := range hc {
		var err error
		if ctx, err = h.BeforeHandle(ctx, km); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (hc HookChain) AfterHandle(ctx context.Context, km kafka.Message, attempts int, err error) {
	for _, h := range hc {
		h.AfterHandle(ctx, km, attempts, err)
	}
}

// Header returns the value of header key, or "".
func Header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
