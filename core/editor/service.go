package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/blocktree"
	"github.com/trezcool/masomo/core/page"
)

var (
	// errors
	ErrSessionNotFound = errors.New("editing session not found")
	ErrForbidden       = errors.New("not allowed to edit this document")
)

// Session describes one user editing one document.
type Session struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	UserID        string    `json:"user_id"`
	BaseVersion   int       `json:"base_version"`
	RestoredDraft bool      `json:"restored_draft"`
	OpenedAt      time.Time `json:"opened_at"` // UTC
	LastSeen      time.Time `json:"last_seen"` // UTC
}

type (
	Service interface {
		Palette() *Palette
		// Open starts a session, or returns the one the actor already has on the document.
		Open(ctx context.Context, documentID string, actor page.Actor) (Session, State, error)
		State(id string, actor page.Actor) (Session, State, error)
		Dispatch(ctx context.Context, id string, actor page.Actor, a Action) (State, error)
		// Save writes the tree and settings to the document.
		Save(ctx context.Context, id string, actor page.Actor) (page.Document, error)
		// Close resets the store, drops the draft and ends the session.
		Close(ctx context.Context, id string, actor page.Actor) error
		// Subscribe streams the state after every change, starting with the current one.
		Subscribe(id string, actor page.Actor) (<-chan State, func(), error)
		// Sweep ends the sessions idle since before now minus the TTL. Their drafts are kept.
		Sweep(now time.Time) int
	}

	Options struct {
		MaxHistory int
		SessionTTL time.Duration
		NewID      blocktree.IDFunc
		Now        func() time.Time
	}

	session struct {
		mu      sync.Mutex
		info    Session
		store   *Store
		subs    map[int]chan State
		nextSub int
		closed  bool
	}

	service struct {
		opts     Options
		palette  *Palette
		pages    page.Service
		drafts   DraftStore
		validate *validator.Validate
		logger   core.Logger

		mu       sync.RWMutex
		sessions map[string]*session // by session ID
		byOwner  map[string]string   // "documentID/userID" -> session ID
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	opts Options,
	palette *Palette,
	pages page.Service,
	drafts DraftStore,
	validate *validator.Validate,
	logger core.Logger,
) (Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(palette, "palette"),
		vala.IsNotNil(pages, "pages"),
		vala.IsNotNil(drafts, "drafts"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "creating editor service")
	}

	if opts.NewID == nil {
		opts.NewID = blocktree.NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		opts:     opts,
		palette:  palette,
		pages:    pages,
		drafts:   drafts,
		validate: validate,
		logger:   logger,
		sessions: make(map[string]*session),
		byOwner:  make(map[string]string),
	}, nil
}

func ownerKey(documentID, userID string) string { return documentID + "/" + userID }

func (svc *service) now() time.Time { return svc.opts.Now().UTC() }

func (svc *service) Palette() *Palette { return svc.palette }

func (svc *service) Open(ctx context.Context, documentID string, actor page.Actor) (Session, State, error) {
	if sess, ok := svc.ownedSession(documentID, actor.ID); ok {
		return sess.touch(svc.now())
	}

	doc, err := svc.pages.GetByID(ctx, documentID)
	if err != nil {
		return Session{}, State{}, err
	}
	if !doc.CanEdit(actor) {
		return Session{}, State{}, ErrForbidden
	}

	now := svc.now()
	info := Session{
		ID:          uuid.New().String(),
		DocumentID:  doc.ID,
		UserID:      actor.ID,
		BaseVersion: doc.Version,
		OpenedAt:    now,
		LastSeen:    now,
	}
	initial := NewState(doc.ID, doc.Blocks, settingsOf(doc))

	draft, err := svc.drafts.GetDraft(ctx, doc.ID, actor.ID)
	switch {
	case err == nil && draft.BaseVersion == doc.Version:
		initial = NewState(doc.ID, draft.Blocks, draft.Settings)
		info.RestoredDraft = true
	case err == nil:
		// the document moved on since the draft was taken
		svc.logger.Warn(fmt.Sprintf("dropping stale draft of document %s (version %d, now %d)", doc.ID, draft.BaseVersion, doc.Version))
		svc.dropDraft(ctx, doc.ID, actor.ID)
	case core.IsShutdown(err):
		return Session{}, State{}, err
	case errors.Cause(err) != ErrDraftNotFound:
		svc.logger.Error(fmt.Sprintf("loading draft: %v", err), err)
	}

	sess := &session{
		info:  info,
		store: NewStore(initial, svc.opts.MaxHistory, svc.opts.NewID),
		subs:  make(map[int]chan State),
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	key := ownerKey(doc.ID, actor.ID)
	if id, ok := svc.byOwner[key]; ok { // lost a race with a concurrent Open
		if other, ok := svc.sessions[id]; ok {
			return other.touch(now)
		}
	}
	svc.sessions[info.ID] = sess
	svc.byOwner[key] = info.ID
	return info, sess.store.State(), nil
}

func (svc *service) ownedSession(documentID, userID string) (*session, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	id, ok := svc.byOwner[ownerKey(documentID, userID)]
	if !ok {
		return nil, false
	}
	sess, ok := svc.sessions[id]
	return sess, ok
}

// get returns the session if it belongs to actor. Other users' sessions are reported as missing.
func (svc *service) get(id string, actor page.Actor) (*session, error) {
	svc.mu.RLock()
	sess, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if !ok || sess.info.UserID != actor.ID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (svc *service) State(id string, actor page.Actor) (Session, State, error) {
	sess, err := svc.get(id, actor)
	if err != nil {
		return Session{}, State{}, err
	}
	return sess.touch(svc.now())
}

func (svc *service) Dispatch(ctx context.Context, id string, actor page.Actor, a Action) (State, error) {
	sess, err := svc.get(id, actor)
	if err != nil {
		return State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return State{}, ErrSessionNotFound
	}
	sess.info.LastSeen = svc.now()

	seq := sess.store.Seq()
	state, err := sess.store.Dispatch(a)
	if err != nil {
		return state, err
	}
	if sess.store.Seq() == seq {
		return state, nil
	}

	if sess.store.Dirty() {
		svc.autosave(ctx, sess, state)
	} else if a.Type() == ActionReset {
		svc.dropDraft(ctx, sess.info.DocumentID, sess.info.UserID)
	}
	sess.publish(state)
	return state, nil
}

// autosave stores the draft; failures are logged, the edit itself already succeeded.
func (svc *service) autosave(ctx context.Context, sess *session, state State) {
	err := svc.drafts.PutDraft(ctx, Draft{
		DocumentID:  sess.info.DocumentID,
		UserID:      sess.info.UserID,
		BaseVersion: sess.info.BaseVersion,
		Blocks:      state.Blocks,
		Settings:    state.Settings,
		SavedAt:     svc.now(),
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("saving draft: %v", err), err, core.Person{ID: sess.info.UserID})
	}
}

func (svc *service) dropDraft(ctx context.Context, documentID, userID string) {
	if err := svc.drafts.DeleteDraft(ctx, documentID, userID); err != nil && errors.Cause(err) != ErrDraftNotFound {
		svc.logger.Error(fmt.Sprintf("deleting draft: %v", err), err, core.Person{ID: userID})
	}
}

func (svc *service) Save(ctx context.Context, id string, actor page.Actor) (page.Document, error) {
	sess, err := svc.get(id, actor)
	if err != nil {
		return page.Document{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return page.Document{}, ErrSessionNotFound
	}
	sess.info.LastSeen = svc.now()

	orig, err := svc.pages.GetByID(ctx, sess.info.DocumentID)
	if err != nil {
		return page.Document{}, err
	}
	if !orig.CanEdit(actor) {
		return page.Document{}, ErrForbidden
	}

	state := sess.store.State()
	ud := page.UpdateDocument{
		Title:       state.Settings.Title,
		Slug:        state.Settings.Slug,
		Description: &state.Settings.Description,
		CoverImage:  &state.Settings.CoverImage,
		Tags:        state.Settings.Tags,
		Blocks:      state.Blocks,
		Version:     sess.info.BaseVersion,
	}
	if ud.Tags == nil {
		ud.Tags = []string{}
	}
	if err = ud.Validate(ctx, orig, svc.validate, svc.pages); err != nil {
		return page.Document{}, err
	}

	doc, err := svc.pages.Update(ctx, orig.ID, ud, actor)
	if err != nil {
		return page.Document{}, err
	}
	sess.info.BaseVersion = doc.Version
	sess.store.MarkSaved()
	svc.dropDraft(ctx, doc.ID, actor.ID)
	return doc, nil
}

func (svc *service) Close(ctx context.Context, id string, actor page.Actor) error {
	sess, err := svc.get(id, actor)
	if err != nil {
		return err
	}
	svc.end(sess)
	svc.dropDraft(ctx, sess.info.DocumentID, sess.info.UserID)
	return nil
}

// end unregisters the session and hangs up its subscribers.
func (svc *service) end(sess *session) {
	svc.endIf(sess, func() bool { return true })
}

// endIf ends sess if cond, evaluated under the session lock, holds. It reports whether it did.
func (svc *service) endIf(sess *session, cond func() bool) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed || !cond() {
		return false
	}

	delete(svc.sessions, sess.info.ID)
	if svc.byOwner[ownerKey(sess.info.DocumentID, sess.info.UserID)] == sess.info.ID {
		delete(svc.byOwner, ownerKey(sess.info.DocumentID, sess.info.UserID))
	}
	sess.closed = true
	sess.store.Reset()
	for i, ch := range sess.subs {
		close(ch)
		delete(sess.subs, i)
	}
	return true
}

func (svc *service) Subscribe(id string, actor page.Actor) (<-chan State, func(), error) {
	sess, err := svc.get(id, actor)
	if err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan State, 1)
	ch <- sess.store.State()
	n := sess.nextSub
	sess.nextSub++
	sess.subs[n] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if ch, ok := sess.subs[n]; ok {
				close(ch)
				delete(sess.subs, n)
			}
		})
	}
	return ch, unsubscribe, nil
}

func (svc *service) Sweep(now time.Time) int {
	deadline := now.UTC().Add(-svc.opts.SessionTTL)

	svc.mu.RLock()
	idle := make([]*session, 0)
	for _, sess := range svc.sessions {
		sess.mu.Lock()
		if sess.idleSince(deadline) {
			idle = append(idle, sess)
		}
		sess.mu.Unlock()
	}
	svc.mu.RUnlock()

	var n int
	for _, sess := range idle {
		if svc.endIdle(sess, deadline) {
			n++
			svc.logger.Info(fmt.Sprintf("closed idle editing session %s", sess.info.ID))
		}
	}
	return n
}

// endIdle ends sess unless it was used after deadline, e.g. by a dispatch racing the sweep.
func (svc *service) endIdle(sess *session, deadline time.Time) bool {
	return svc.endIf(sess, func() bool { return sess.idleSince(deadline) })
}

// idleSince reports whether the session was last used before deadline. Callers hold sess.mu.
func (sess *session) idleSince(deadline time.Time) bool {
	return sess.info.LastSeen.Before(deadline)
}

func (sess *session) touch(now time.Time) (Session, State, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return Session{}, State{}, ErrSessionNotFound
	}
	sess.info.LastSeen = now
	return sess.info, sess.store.State(), nil
}

// publish hands the latest state to every subscriber, replacing a state it has not read yet.
// Callers hold sess.mu.
func (sess *session) publish(state State) {
	for _, ch := range sess.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state.Clone()
	}
}

func settingsOf(doc page.Document) Settings {
	return Settings{
		Title:       doc.Title,
		Slug:        doc.Slug,
		Description: doc.Description,
		CoverImage:  doc.CoverImage,
		Tags:        append([]string{}, doc.Tags...),
	}
}
