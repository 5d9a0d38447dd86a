package obs

import "context"

type contextKey int

const routePatternCtxKey contextKey = iota

// WithRoutePattern annotates ctx with the matched chi route template (for
// example /api/v1/orders/{id}) so metrics and logs label by route, not by
// raw path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternCtxKey, pattern)
}

// RoutePatternFromContext returns the stored route template, or "" when the
// request never matched a route.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternCtxKey).(string)
	return pattern
}
