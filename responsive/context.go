package responsive

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying src, for adapters that look the
// store up instead of receiving it directly.
func NewContext(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, contextKey{}, src)
}

// FromContext returns the Source attached by NewContext, or ErrMissingStore.
func FromContext(ctx context.Context) (Source, error) {
	if ctx == nil {
		return nil, ErrMissingStore
	}
	src, ok := ctx.Value(contextKey{}).(Source)
	if !ok || src == nil {
		return nil, ErrMissingStore
	}
	return src, nil
}
