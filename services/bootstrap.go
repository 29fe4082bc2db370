package services

import (
	"context"
	"time"

	"stoplist-telegram/logging"
)

type BootstrapState int

const (
	// BootstrapReady: the remote store is verified or freshly provisioned.
	BootstrapReady BootstrapState = iota
	// BootstrapReadyDegraded: running on local files only.
	BootstrapReadyDegraded
	// BootstrapHalted: configuration is invalid; the process must not start.
	BootstrapHalted
)

func (s BootstrapState) String() string {
	switch s {
	case BootstrapReady:
		return "ready"
	case BootstrapReadyDegraded:
		return "ready_degraded"
	default:
		return "halted"
	}
}

type BootstrapResult struct {
	State      BootstrapState
	DocumentID string
	// Problems lists configuration deficiencies when State is BootstrapHalted.
	Problems []string
	Detail   string
}

// Reconciler runs the one-shot startup check of configuration and remote
// store. It never retries; a failed repair leaves the process on local files
// because every later remote call simply fails over.
type Reconciler struct {
	problems func() []string
	remote   RemoteStore
	timeout  time.Duration
	log      logging.Logger
}

// NewReconciler builds a reconciler. problems returns configuration
// deficiencies; remote may be nil for local-only runs.
func NewReconciler(problems func() []string, remote RemoteStore, timeout time.Duration, log logging.Logger) *Reconciler {
	if log == nil {
		log = logging.Discard()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reconciler{problems: problems, remote: remote, timeout: timeout, log: log}
}

func (r *Reconciler) Run(ctx context.Context) BootstrapResult {
	if r.problems != nil {
		if problems := r.problems(); len(problems) > 0 {
			for _, p := range problems {
				r.log.Error(ctx, "configuration problem", "problem", p)
			}
			return BootstrapResult{State: BootstrapHalted, Problems: problems, Detail: "configuration invalid"}
		}
	}

	if r.remote == nil {
		r.log.Info(ctx, "no remote store configured, using local files")
		return BootstrapResult{State: BootstrapReadyDegraded, Detail: "remote store disabled"}
	}

	log := r.log.With("backend", r.remote.Name())

	vctx, cancel := context.WithTimeout(ctx, r.timeout)
	ok, detail := r.remote.VerifyOwnership(vctx)
	cancel()
	if ok {
		log.Info(ctx, "remote store verified", "document_id", r.remote.DocumentID())
		return BootstrapResult{State: BootstrapReady, DocumentID: r.remote.DocumentID(), Detail: detail}
	}

	log.Warn(ctx, "remote store not usable, provisioning a new document", "detail", detail)
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	id, err := r.remote.CreateFresh(cctx)
	cancel()
	if err != nil {
		log.Error(ctx, "remote repair failed, continuing on local files", "err", err)
		return BootstrapResult{State: BootstrapReadyDegraded, Detail: err.Error()}
	}
	log.Info(ctx, "remote document provisioned", "document_id", id)
	return BootstrapResult{State: BootstrapReady, DocumentID: id, Detail: "provisioned new document"}
}
