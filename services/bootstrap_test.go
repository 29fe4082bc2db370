package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRemote struct {
	*memStore
	id        string
	verified  bool
	createID  string
	createErr error
	creates   int
}

func (f *fakeRemote) Name() string       { return "fake" }
func (f *fakeRemote) DocumentID() string { return f.id }

func (f *fakeRemote) VerifyOwnership(ctx context.Context) (bool, string) {
	if f.verified {
		return true, "ok"
	}
	return false, "document missing"
}

func (f *fakeRemote) CreateFresh(ctx context.Context) (string, error) {
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.id = f.createID
	return f.id, nil
}

func noProblems() []string { return nil }

func TestReconciler_Halted(t *testing.T) {
	remote := &fakeRemote{}
	r := NewReconciler(func() []string { return []string{"BOT_TOKEN is not set"} }, remote, time.Second, nil)

	res := r.Run(context.Background())
	assert.Equal(t, BootstrapHalted, res.State)
	assert.Equal(t, []string{"BOT_TOKEN is not set"}, res.Problems)
	assert.Zero(t, remote.creates)
}

func TestReconciler_Verified(t *testing.T) {
	remote := &fakeRemote{id: "abc", verified: true}
	res := NewReconciler(noProblems, remote, time.Second, nil).Run(context.Background())

	assert.Equal(t, BootstrapReady, res.State)
	assert.Equal(t, "abc", res.DocumentID)
	assert.Zero(t, remote.creates)
}

func TestReconciler_CreatesMissingDocument(t *testing.T) {
	remote := &fakeRemote{createID: "new"}
	res := NewReconciler(noProblems, remote, time.Second, nil).Run(context.Background())

	assert.Equal(t, BootstrapReady, res.State)
	assert.Equal(t, "new", res.DocumentID)
	assert.Equal(t, 1, remote.creates)
}

func TestReconciler_RepairFails(t *testing.T) {
	remote := &fakeRemote{createErr: ErrRemoteUnavailable}
	res := NewReconciler(noProblems, remote, time.Second, nil).Run(context.Background())

	assert.Equal(t, BootstrapReadyDegraded, res.State)
	assert.Equal(t, 1, remote.creates)
}

func TestReconciler_NoRemote(t *testing.T) {
	res := NewReconciler(noProblems, nil, time.Second, nil).Run(context.Background())
	assert.Equal(t, BootstrapReadyDegraded, res.State)
	assert.Equal(t, "ready_degraded", res.State.String())
}
