package consumer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corpus-self/ingest-fabric/internal/events"
	"github.com/corpus-self/ingest-fabric/internal/idempotency"
	"github.com/corpus-self/ingest-fabric/internal/vespa"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{
			name: "validation",
			err:  &events.ValidationError{Field: "email.id", Reason: "required"},
			want: ClassValidation,
		},
		{
			name: "wrapped validation",
			err:  fmt.Errorf("process: %w", &events.ValidationError{Field: "user_id", Reason: "required"}),
			want: ClassValidation,
		},
		{
			name: "in flight",
			err:  fmt.Errorf("dispatch: %w", idempotency.ErrInFlight),
			want: ClassInFlight,
		},
		{
			name: "permanent sink rejection",
			err:  fmt.Errorf("upsert: %w", &vespa.StatusError{Code: 400, Body: "bad field"}),
			want: ClassPermanent,
		},
		{
			name: "transient sink failure",
			err:  fmt.Errorf("upsert: %w", &vespa.StatusError{Code: 503, Body: "overloaded"}),
			want: ClassTransient,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: ClassTransient,
		},
		{
			name: "unknown defaults to transient",
			err:  errors.New("dial tcp: connection refused"),
			want: ClassTransient,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "validation", ClassValidation.String())
	assert.Equal(t, "transient", ClassTransient.String())
	assert.Equal(t, "permanent", ClassPermanent.String())
	assert.Equal(t, "in_flight", ClassInFlight.String())
}
