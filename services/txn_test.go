package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HSouheill/nestfire_backend/services"
)

func recordingStep(name string, log *[]string, fail error) services.Step {
	return services.Step{
		Name: name,
		Do: func(context.Context) error {
			*log = append(*log, "do "+name)
			return fail
		},
		Undo: func(context.Context) error {
			*log = append(*log, "undo "+name)
			return nil
		},
	}
}

func TestCompensatorUndoesInReverse(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	c := services.NewCompensator(zap.NewNop())

	err := c.Run(context.Background(),
		recordingStep("a", &log, nil),
		recordingStep("b", &log, nil),
		recordingStep("c", &log, boom),
		recordingStep("d", &log, nil),
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log)
}

func TestCompensatorSuccessSkipsUndo(t *testing.T) {
	var log []string
	c := services.NewCompensator(zap.NewNop())
	require.NoError(t, c.Run(context.Background(), recordingStep("a", &log, nil), recordingStep("b", &log, nil)))
	assert.Equal(t, []string{"do a", "do b"}, log)
}

func TestCompensatorUndoRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undoCtxErr error
	c := services.NewCompensator(zap.NewNop())

	err := c.Run(ctx,
		services.Step{
			Name: "first",
			Do:   func(context.Context) error { return nil },
			Undo: func(ctx context.Context) error {
				undoCtxErr = ctx.Err()
				return nil
			},
		},
		services.Step{
			Name: "second",
			Do: func(ctx context.Context) error {
				cancel()
				return ctx.Err()
			},
		},
	)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, undoCtxErr)
}

func TestCompensatorLogsFailedUndo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := services.NewCompensator(zap.New(core))

	err := c.Run(context.Background(),
		services.Step{
			Name: "insert",
			Do:   func(context.Context) error { return nil },
			Undo: func(context.Context) error { return errors.New("still down") },
		},
		services.Step{
			Name: "link",
			Do:   func(context.Context) error { return errors.New("down") },
		},
	)
	require.Error(t, err)

	failed := logs.FilterMessage("undo failed, reconcile required").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "insert", fields["step"])
	assert.Equal(t, "link", fields["failedStep"])
	assert.Equal(t, 1, logs.FilterMessage("unit rolled back").Len())
}

func TestErrorKinds(t *testing.T) {
	nf := services.NotFound("Post not found")
	wrapped := fmt.Errorf("outer: %w", nf)

	assert.ErrorIs(t, wrapped, services.ErrNotFound)
	assert.NotErrorIs(t, wrapped, services.ErrForbidden)
	assert.Equal(t, services.KindNotFound, services.KindOf(wrapped))
	assert.Equal(t, "Post not found", services.MessageOf(wrapped))

	// kinds survive Wrap
	assert.Same(t, nf, services.Wrap(nf, "find post"))

	internal := services.Wrap(errors.New("socket reset"), "find post")
	assert.Equal(t, services.KindInternal, services.KindOf(internal))
	assert.Equal(t, "Internal server error", services.MessageOf(internal))
	assert.Contains(t, internal.Error(), "socket reset")
	assert.Nil(t, services.Wrap(nil, "noop"))
}
