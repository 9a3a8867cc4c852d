package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellolink/internal/domain/linkerr"
	"github.com/dropDatabas3/hellolink/internal/domain/repository"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/notify"
	"github.com/dropDatabas3/hellolink/internal/providers"
)

// blockingAdapter no devuelve hasta que se cierra release o se cancela ctx.
type blockingAdapter struct {
	kind    types.ProviderKind
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAdapter) Kind() types.ProviderKind { return b.kind }

func (b *blockingAdapter) Acquire(ctx context.Context) (types.Credential, error) {
	close(b.entered)
	select {
	case <-b.release:
		return nil, providers.Cancelled(b.kind)
	case <-ctx.Done():
		return nil, providers.Classify(b.kind, ctx.Err())
	}
}

func newTestController(t *testing.T, timeout time.Duration, adapters ...providers.Adapter) (*Controller, *bytes.Buffer) {
	t.Helper()
	reg := providers.NewRegistry()
	for _, a := range adapters {
		a := a
		reg.RegisterFactory(a.Kind(), func() (providers.Adapter, error) { return a, nil })
	}
	var out bytes.Buffer
	orch := link.New(link.Deps{})
	return NewController(orch, reg, notify.WriterSink{W: &out}, timeout), &out
}

func TestController_SecondRunIsBusy(t *testing.T) {
	ad := &blockingAdapter{kind: types.ProviderGoogle, entered: make(chan struct{}), release: make(chan struct{})}
	c, out := newTestController(t, 0, ad)

	done := make(chan link.Outcome, 1)
	go func() {
		o, err := c.Run(context.Background(), types.ProviderGoogle, types.ModeSignIn)
		assert.NoError(t, err)
		done <- o
	}()
	<-ad.entered

	_, err := c.Run(context.Background(), types.ProviderGoogle, types.ModeSignIn)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.SignOut(context.Background()), ErrBusy)
	_, err = c.Restore(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(ad.release)
	o := <-done
	assert.Equal(t, link.StatusCancelled, o.Status)
	assert.Empty(t, out.String(), "cancelled outcome must not notify")
}

func TestController_DialogTimeout(t *testing.T) {
	ad := &blockingAdapter{kind: types.ProviderFacebook, entered: make(chan struct{}), release: make(chan struct{})}
	c, out := newTestController(t, 20*time.Millisecond, ad)

	o, err := c.Run(context.Background(), types.ProviderFacebook, types.ModeSignIn)
	require.NoError(t, err)
	assert.Equal(t, link.StatusFailure, o.Status)
	assert.Equal(t, linkerr.KindNetwork, o.ErrorKind())
	assert.Contains(t, out.String(), "Error!")
}

func TestController_UnregisteredProvider(t *testing.T) {
	c, out := newTestController(t, 0)

	o, err := c.Run(context.Background(), types.ProviderGoogle, types.ModeSignIn)
	require.NoError(t, err)
	assert.Equal(t, link.StatusFailure, o.Status)
	assert.Equal(t, linkerr.KindProviderUnavailable, o.ErrorKind())
	assert.Equal(t, types.ProviderGoogle, o.Provider)
	assert.Contains(t, out.String(), "Error!")
}

func TestController_LinkWithoutSessionSkipsDialog(t *testing.T) {
	ad := &blockingAdapter{kind: types.ProviderApple, entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestController(t, 0, ad)

	o, err := c.Run(context.Background(), types.ProviderApple, types.ModeLink)
	require.NoError(t, err)
	assert.Equal(t, linkerr.KindInvalidState, o.ErrorKind())

	select {
	case <-ad.entered:
		t.Fatal("provider dialog opened without a session")
	default:
	}
}

// instantAdapter devuelve la credencial sin diálogo.
type instantAdapter struct{ cred types.PasswordCredential }

func (instantAdapter) Kind() types.ProviderKind { return types.ProviderPassword }

func (a instantAdapter) Acquire(context.Context) (types.Credential, error) { return a.cred, nil }

// slowClient tarda delay en cada llamada al store.
type slowClient struct {
	repository.IdentityClient
	delay time.Duration
	id    *repository.RemoteIdentity
}

func (s *slowClient) wait(ctx context.Context) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *slowClient) PasswordLogin(ctx context.Context, _, _ string) (*repository.RemoteIdentity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.id, nil
}

func (s *slowClient) CurrentIdentity(ctx context.Context) (*repository.RemoteIdentity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.id, nil
}

func TestController_DialogTimeoutDoesNotBoundRemoteCalls(t *testing.T) {
	reg := providers.NewRegistry()
	reg.RegisterFactory(types.ProviderPassword, func() (providers.Adapter, error) {
		return instantAdapter{cred: types.PasswordCredential{Username: "alice", Secret: "pw"}}, nil
	})
	client := &slowClient{delay: 60 * time.Millisecond, id: &repository.RemoteIdentity{ID: "u1", Username: "alice", EmailVerified: true}}
	c := NewController(link.New(link.Deps{Client: client}), reg, notify.WriterSink{W: &bytes.Buffer{}}, 20*time.Millisecond)

	o, err := c.Run(context.Background(), types.ProviderPassword, types.ModeSignIn)
	require.NoError(t, err)
	require.Equal(t, link.StatusSuccess, o.Status, "err: %+v", o.Err)
	assert.Equal(t, "u1", c.Current().ID)
}
