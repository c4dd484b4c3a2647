package httpapi

import (
	"context"

	"github.com/travelplan/itinerary-api/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, sub domain.SubjectID) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFromContext(ctx context.Context) (domain.SubjectID, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.SubjectID)
	return v, ok && v != ""
}
