package services

import "context"

type contextKey string

const (
	trackKeyKey contextKey = "track_key"
	phaseKey    contextKey = "phase"
	batchIDKey  contextKey = "batch_id"
)

// WithTrackKey annotates context with the normalized track key.
func WithTrackKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, trackKeyKey, key)
}

// TrackKeyFromContext extracts the track key if present.
func TrackKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(trackKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the analysis phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID annotates context with a submission batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
