package shipway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_RunsStagesInOrder(t *testing.T) {
	t.Parallel()

	var order []string

	stage := func(name string) Stage {
		return StageFunc{StageName: name, Fn: func(context.Context) error {
			order = append(order, name)

			return nil
		}}
	}

	p := NewPipeline([]Stage{stage("first"), stage("second"), stage("third")}, WithLogger(discardLogger()))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Results, 3)

	for _, res := range report.Results {
		assert.Equal(t, StatusOK, res.Status)
	}
}

func TestPipeline_HaltsOnFailure(t *testing.T) {
	t.Parallel()

	ran := make(map[string]bool)

	ok := StageFunc{StageName: "sync", Fn: func(context.Context) error {
		ran["sync"] = true

		return nil
	}}
	boom := StageFunc{StageName: "materialize", Fn: func(context.Context) error {
		ran["materialize"] = true

		return errors.New("corrupt bundle")
	}}
	never := StageFunc{StageName: "transition", Fn: func(context.Context) error {
		ran["transition"] = true

		return nil
	}}

	p := NewPipeline([]Stage{ok, boom, never}, WithLogger(discardLogger()))

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialize")

	assert.True(t, ran["sync"])
	assert.True(t, ran["materialize"])
	assert.False(t, ran["transition"], "stages after a failure must not run")

	require.Len(t, report.Results, 3)
	assert.Equal(t, StatusOK, report.Results[0].Status)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, StatusSkipped, report.Results[2].Status)

	failed := report.Failed()
	require.NotNil(t, failed)
	assert.Equal(t, "materialize", failed.Stage)
}

func TestPipeline_ContinuesPastPartial(t *testing.T) {
	t.Parallel()

	var reached bool

	partial := StageFunc{StageName: "host-trust", Fn: func(context.Context) error {
		return &PartialError{Errs: []error{
			&ProbeError{Host: "b.invalid", Err: errors.New("no route to host")},
		}}
	}}
	next := StageFunc{StageName: "source-sync", Fn: func(context.Context) error {
		reached = true

		return nil
	}}

	p := NewPipeline([]Stage{partial, next}, WithLogger(discardLogger()))

	report, err := p.Run(context.Background())
	require.NoError(t, err, "a partial stage must not halt the pipeline")
	assert.True(t, reached)

	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusPartial, report.Results[0].Status)
	assert.Equal(t, StatusOK, report.Results[1].Status)
	assert.True(t, report.Partial())
	assert.Nil(t, report.Failed())
}

func TestPipeline_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran bool

	p := NewPipeline([]Stage{
		StageFunc{StageName: "sync", Fn: func(context.Context) error {
			ran = true

			return nil
		}},
	}, WithLogger(discardLogger()))

	report, err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusFailed, report.Results[0].Status)
}

func TestPipeline_WithRunID(t *testing.T) {
	t.Parallel()

	p := NewPipeline(nil, WithLogger(discardLogger()), WithRunID("job-42"))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-42", report.ID)
}

func TestPartialError_Error(t *testing.T) {
	t.Parallel()

	t.Run("single failure", func(t *testing.T) {
		t.Parallel()

		e := &PartialError{Errs: []error{&ProbeError{Host: "b.invalid", Err: errors.New("timeout")}}}
		assert.Contains(t, e.Error(), "b.invalid")
	})

	t.Run("multiple failures", func(t *testing.T) {
		t.Parallel()

		e := &PartialError{Errs: []error{
			&ProbeError{Host: "a.test", Err: errors.New("timeout")},
			&ProbeError{Host: "b.invalid", Err: errors.New("refused")},
		}}
		assert.Contains(t, e.Error(), "2 failures")
	})

	t.Run("unwraps to probe errors", func(t *testing.T) {
		t.Parallel()

		probe := &ProbeError{Host: "b.invalid", Err: errors.New("timeout")}
		e := &PartialError{Errs: []error{probe}}

		var got *ProbeError
		require.ErrorAs(t, e, &got)
		assert.Equal(t, "b.invalid", got.Host)
	})
}
