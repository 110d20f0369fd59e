package source_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/channel/mock"
	"github.com/shipwaylabs/shipway/source"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	treePath = "/var/www/api"
	headSHA  = "9ae2b382f94a54640527cda6cfd80d0e31f3b9cb"
)

func exitResult(code int) *shipway.Result {
	return &shipway.Result{ExitCode: code}
}

func TestSyncer_Sync_ResolvesLocallyAndResets(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Run(mock.RespondWith(".git\n", "")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet main^{commit}")).
		Run(mock.RespondWith(headSHA+"\n", "")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api reset --hard "+headSHA)).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api clean -fd")).
		Return(exitResult(0), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "main", false)
	require.NoError(t, err)

	// No fetch is issued when the reference resolves locally.
	ch.AssertNotCalled(t, "Run", ctx, mock.CommandEquals("git -C /var/www/api fetch origin"))
	ch.AssertExpectations(t)
}

func TestSyncer_Sync_FetchesMissingReference(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Return(exitResult(0), nil)

	// Unresolvable before the fetch, resolvable after.
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet release^{commit}")).
		Return(exitResult(1), nil).Once()
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet refs/remotes/origin/release^{commit}")).
		Return(exitResult(1), nil).Once()
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api fetch origin")).
		Return(exitResult(0), nil).Once()
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet release^{commit}")).
		Run(mock.RespondWith(headSHA+"\n", "")).
		Return(exitResult(0), nil).Once()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api reset --hard "+headSHA)).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api clean -fd")).
		Return(exitResult(0), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "release", false)
	require.NoError(t, err)

	ch.AssertExpectations(t)
}

func TestSyncer_Sync_TagNamespace(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet refs/tags/v1.2.0^{commit}")).
		Run(mock.RespondWith(headSHA+"\n", "")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api reset --hard "+headSHA)).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api clean -fd")).
		Return(exitResult(0), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "v1.2.0", true)
	require.NoError(t, err)

	// Tag mode never consults the commit namespace.
	ch.AssertNotCalled(t, "Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet v1.2.0^{commit}"))
	ch.AssertExpectations(t)
}

func TestSyncer_Sync_ReferenceNotFound(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet refs/tags/v1.2.0^{commit}")).
		Return(exitResult(1), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api fetch origin +refs/tags/v1.2.0:refs/tags/v1.2.0")).
		Return(exitResult(128), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "v1.2.0", true)
	require.Error(t, err)

	var notFound *shipway.ReferenceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "v1.2.0", notFound.Reference)
	assert.Equal(t, source.NamespaceTag, notFound.Namespace)

	// The failed fetch is soft; no reset was attempted.
	ch.AssertNotCalled(t, "Run", ctx, mock.CommandContains("reset --hard"))
	ch.AssertExpectations(t)
}

func TestSyncer_Sync_NotARepository(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Run(mock.RespondWith("", "fatal: not a git repository\n")).
		Return(exitResult(128), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "main", false)
	require.Error(t, err)

	var stateErr *shipway.RepositoryStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, treePath, stateErr.Path)
	assert.Contains(t, stateErr.Detail, "not a git repository")

	ch.AssertExpectations(t)
}

func TestSyncer_Sync_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	wantErr := &shipway.TransportError{Err: errors.New("connection lost")}
	ch.On("Run", ctx, testifymock.Anything).Return(nil, wantErr)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "main", false)
	require.Error(t, err)

	var transportErr *shipway.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestSyncer_Sync_ResetFailureSurfaces(t *testing.T) {
	t.Parallel()

	ch := mock.New()
	ctx := context.Background()

	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --git-dir")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api rev-parse --verify --quiet main^{commit}")).
		Run(mock.RespondWith(headSHA+"\n", "")).
		Return(exitResult(0), nil)
	ch.On("Run", ctx, mock.CommandEquals("git -C /var/www/api reset --hard "+headSHA)).
		Run(mock.RespondWith("", "fatal: unable to write new index file\n")).
		Return(exitResult(128), nil)

	err := source.NewSyncer(ch).Sync(ctx, treePath, "main", false)
	require.Error(t, err)

	var exitErr *shipway.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 128, exitErr.ExitCode)
	assert.Contains(t, string(exitErr.Stderr), "unable to write new index file")

	ch.AssertExpectations(t)
}
