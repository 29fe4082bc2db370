package services

import (
	"context"
	"sync"
	"time"

	"stoplist-telegram/logging"
	"stoplist-telegram/models"
)

// StateStore is one persistence backend for the shared state.
type StateStore interface {
	Fetch(ctx context.Context) (models.State, error)
	Store(ctx context.Context, st models.State) error
}

// RemoteStore is a shared backend that can also check and repair itself.
type RemoteStore interface {
	StateStore
	Name() string
	DocumentID() string
	VerifyOwnership(ctx context.Context) (bool, string)
	CreateFresh(ctx context.Context) (string, error)
}

// SaveOutcome tells the operator where a write ended up.
type SaveOutcome int

const (
	// Unchanged means nothing needed saving.
	Unchanged SaveOutcome = iota
	// Saved means the primary backend accepted the write.
	Saved
	// SavedLocal means the remote write failed and only the local files hold the change.
	SavedLocal
	SaveFailed
)

// OK reports whether at least one backend holds the state.
func (o SaveOutcome) OK() bool {
	return o != SaveFailed
}

func (o SaveOutcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Saved:
		return "saved"
	case SavedLocal:
		return "saved_local"
	default:
		return "save_failed"
	}
}

// StateRepository reads from the remote store, falling back to local files,
// and writes remote first with the local files as fallback and mirror.
type StateRepository struct {
	remote  StateStore
	local   StateStore
	timeout time.Duration
	log     logging.Logger

	// updateMu serialises Update calls in this process. Stop-list and
	// delivery status are written as one document, so one lock covers both.
	// It is held across remote I/O: a stalled remote delays other operators'
	// mutations by up to timeout per write. LoadState does not take it.
	updateMu sync.Mutex
}

// NewStateRepository builds a repository. remote may be nil for local-only runs.
func NewStateRepository(remote, local StateStore, timeout time.Duration, log logging.Logger) *StateRepository {
	if log == nil {
		log = logging.Discard()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StateRepository{remote: remote, local: local, timeout: timeout, log: log}
}

// LoadState never fails: remote first, then local, then defaults.
func (r *StateRepository) LoadState(ctx context.Context) models.State {
	if r.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		st, err := r.remote.Fetch(rctx)
		cancel()
		if err == nil {
			return st
		}
		r.log.Warn(ctx, "remote load failed, using local files", "err", err)
	}
	st, err := r.local.Fetch(ctx)
	if err != nil {
		r.log.Error(ctx, "local load failed, using defaults", "err", err)
		return models.DefaultState()
	}
	return st
}

// SaveState writes remote first. On remote success the local files are
// refreshed as well so the fallback does not go stale; a failed refresh is
// logged only. On remote failure the local write decides the outcome.
func (r *StateRepository) SaveState(ctx context.Context, st models.State) SaveOutcome {
	if r.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.remote.Store(rctx, st)
		cancel()
		if err == nil {
			if lerr := r.local.Store(ctx, st); lerr != nil {
				r.log.Warn(ctx, "local mirror after remote save failed", "err", lerr)
			}
			return Saved
		}
		r.log.Warn(ctx, "remote save failed, falling back to local files", "err", err)
	}
	if err := r.local.Store(ctx, st); err != nil {
		r.log.Error(ctx, "state not saved anywhere", "err", err)
		return SaveFailed
	}
	if r.remote == nil {
		return Saved
	}
	return SavedLocal
}

// Update runs load, mutate and save as one step with respect to other Update
// calls in this process. mutate reports whether it changed the state; an
// unchanged state is not written. Writers in other processes still race
// with last-write-wins.
func (r *StateRepository) Update(ctx context.Context, mutate func(st *models.State) (bool, error)) (models.State, SaveOutcome, error) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	st := r.LoadState(ctx)
	changed, err := mutate(&st)
	if err != nil {
		return st, Unchanged, err
	}
	if !changed {
		return st, Unchanged, nil
	}
	return st, r.SaveState(ctx, st), nil
}
