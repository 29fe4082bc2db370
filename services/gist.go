package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"stoplist-telegram/logging"
	"stoplist-telegram/models"
)

const (
	stopListBlob       = "stop_list.json"
	deliveryStatusBlob = "delivery_status.json"

	gistAccept    = "application/vnd.github.v3+json"
	gistUserAgent = "stoplist-bot"
)

// DocumentIDSink remembers a newly provisioned remote document id so the
// next run reuses it.
type DocumentIDSink interface {
	SaveDocumentID(id string) error
}

type GistConfig struct {
	BaseURL     string // e.g. https://api.github.com
	Token       string
	GistID      string
	Description string
	RatePerSec  float64
	Timeout     time.Duration
	HTTPClient  *http.Client
	IDs         DocumentIDSink
	Log         logging.Logger
}

// GistStore keeps the state as two files of one private GitHub gist.
type GistStore struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	token       string
	description string
	ids         DocumentIDSink
	log         logging.Logger

	mu sync.RWMutex
	id string
}

func NewGistStore(cfg GistConfig) *GistStore {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		}
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	return &GistStore{
		httpClient:  client,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		description: cfg.Description,
		ids:         cfg.IDs,
		log:         log,
		id:          cfg.GistID,
	}
}

func (s *GistStore) Name() string { return "gist" }

// DocumentID returns the gist id currently in use.
func (s *GistStore) DocumentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

type gistOwner struct {
	Login string `json:"login"`
}

type gistDocument struct {
	ID    string               `json:"id"`
	Files map[string]*gistFile `json:"files"`
	Owner *gistOwner           `json:"owner"`
}

type gistCreate struct {
	Description string               `json:"description"`
	Public      bool                 `json:"public"`
	Files       map[string]*gistFile `json:"files"`
}

type gistUpdate struct {
	Files map[string]*gistFile `json:"files"`
}

func (s *GistStore) gistURL() (string, error) {
	id := s.DocumentID()
	if id == "" {
		return "", fmt.Errorf("%w: GIST_ID is not set", ErrRemoteNotFound)
	}
	return s.baseURL + "/gists/" + id, nil
}

// Fetch downloads the gist. A missing or unparsable blob falls back to its
// default so a partially corrupted gist still yields usable state.
func (s *GistStore) Fetch(ctx context.Context) (models.State, error) {
	url, err := s.gistURL()
	if err != nil {
		return models.State{}, err
	}
	var doc gistDocument
	if err := s.doRequest(ctx, http.MethodGet, url, nil, &doc); err != nil {
		return models.State{}, err
	}
	return s.decodeFiles(ctx, doc.Files), nil
}

func (s *GistStore) decodeFiles(ctx context.Context, files map[string]*gistFile) models.State {
	st := models.DefaultState()
	if f := files[stopListBlob]; f != nil && !f.Truncated {
		var list models.StopList
		if err := json.Unmarshal([]byte(f.Content), &list); err != nil {
			s.log.Warn(ctx, "gist blob unparsable, using default", "blob", stopListBlob, "err", err)
		} else if list != nil {
			st.StopList = list.Dedup()
		}
	} else {
		s.log.Warn(ctx, "gist blob missing, using default", "blob", stopListBlob)
	}
	if f := files[deliveryStatusBlob]; f != nil && !f.Truncated {
		var d models.DeliveryStatus
		if err := json.Unmarshal([]byte(f.Content), &d); err != nil {
			s.log.Warn(ctx, "gist blob unparsable, using default", "blob", deliveryStatusBlob, "err", err)
		} else {
			st.Delivery = d
		}
	} else {
		s.log.Warn(ctx, "gist blob missing, using default", "blob", deliveryStatusBlob)
	}
	return st
}

func encodeFiles(st models.State) (map[string]*gistFile, error) {
	list := st.StopList
	if list == nil {
		list = models.StopList{}
	}
	stopJSON, err := marshalPretty(list)
	if err != nil {
		return nil, err
	}
	deliveryJSON, err := marshalPretty(st.Delivery)
	if err != nil {
		return nil, err
	}
	return map[string]*gistFile{
		stopListBlob:       {Content: string(stopJSON)},
		deliveryStatusBlob: {Content: string(deliveryJSON)},
	}, nil
}

// Store overwrites both blobs with one PATCH.
func (s *GistStore) Store(ctx context.Context, st models.State) error {
	url, err := s.gistURL()
	if err != nil {
		return err
	}
	files, err := encodeFiles(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.doRequest(ctx, http.MethodPatch, url, gistUpdate{Files: files}, nil)
}

// VerifyOwnership checks that the gist exists and belongs to the account the
// token authenticates as. GitHub lets collaborators read a gist they cannot
// write, so existence alone is not enough.
func (s *GistStore) VerifyOwnership(ctx context.Context) (bool, string) {
	url, err := s.gistURL()
	if err != nil {
		return false, err.Error()
	}

	var (
		doc              gistDocument
		user             gistOwner
		gistErr, userErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gistErr = s.doRequest(gctx, http.MethodGet, url, nil, &doc)
		return gistErr
	})
	g.Go(func() error {
		userErr = s.doRequest(gctx, http.MethodGet, s.baseURL+"/user", nil, &user)
		return userErr
	})
	_ = g.Wait()

	if gistErr != nil {
		return false, fmt.Sprintf("gist %s is not accessible: %v", s.DocumentID(), gistErr)
	}
	if userErr != nil {
		return false, fmt.Sprintf("cannot resolve the GitHub account of the token: %v", userErr)
	}
	owner := ""
	if doc.Owner != nil {
		owner = doc.Owner.Login
	}
	if owner == "" || owner != user.Login {
		return false, fmt.Sprintf("gist belongs to %q, not to %q; it cannot be edited with this token", owner, user.Login)
	}
	return true, "gist access verified"
}

// CreateFresh provisions a private gist seeded with empty state, switches the
// store to it and hands the new id to the configured sink.
func (s *GistStore) CreateFresh(ctx context.Context) (string, error) {
	files, err := encodeFiles(models.DefaultState())
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	var doc gistDocument
	body := gistCreate{Description: s.description, Public: false, Files: files}
	if err := s.doRequest(ctx, http.MethodPost, s.baseURL+"/gists", body, &doc); err != nil {
		return "", err
	}
	if doc.ID == "" {
		return "", fmt.Errorf("%w: create response has no id", ErrRemoteMalformed)
	}

	s.mu.Lock()
	s.id = doc.ID
	s.mu.Unlock()

	if s.ids != nil {
		if err := s.ids.SaveDocumentID(doc.ID); err != nil {
			s.log.Warn(ctx, "new gist id not persisted; set it manually", "gist_id", doc.ID, "err", err)
		}
	}
	return doc.ID, nil
}

// doRequest sends body as JSON and decodes a 2xx response into target.
// Failures are wrapped in the remote error taxonomy.
func (s *GistStore) doRequest(ctx context.Context, method, url string, body, target any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrRemoteUnavailable, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", gistAccept)
	req.Header.Set("User-Agent", gistUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRemoteUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := ErrRemoteUnavailable
		switch resp.StatusCode {
		case http.StatusNotFound:
			kind = ErrRemoteNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = ErrRemoteForbidden
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", kind, method, url, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: read response: %v", ErrRemoteUnavailable, err)
		}
		return fmt.Errorf("%w: decode response: %v", ErrRemoteMalformed, err)
	}
	return nil
}
