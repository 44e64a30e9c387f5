package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// requestState is the engine's bookkeeping for one request.
type requestState struct {
	m *Manager
	r *http.Request

	// cookieID is the id recovered from the request cookie, if any.
	cookieID string
	// id is the current session id of the request. It survives an unset session.
	id   string
	sess *Session

	originalID   string
	originalHash string
	savedHash    string
	// destroyedID is the id whose record the handler already destroyed.
	destroyedID string

	mu         sync.Mutex
	touched    bool
	cookieDone bool
	finalized  atomic.Bool
}

func (st *requestState) isSecure() bool {
	return isSecure(st.r, st.m.cfg.TrustProxy)
}

func (st *requestState) cookieSecure() bool {
	switch st.m.cfg.Cookie.Secure {
	case SecureOn:
		return true
	case SecureAuto:
		return st.isSecure()
	default:
		return false
	}
}

// activate makes s the request's session, bound to a fresh tracker.
func (st *requestState) activate(s *Session) {
	s.ops = &tracker{next: storeOps{store: st.m.store}, st: st}
	st.sess = s
	st.id = s.id
}

// start gives a request without a usable cookie its first session and
// records it as the request-start baseline.
func (st *requestState) start() error {
	if err := st.generate(); err != nil {
		return err
	}
	st.originalID = st.id
	st.originalHash = st.sess.Fingerprint()
	return nil
}

// generate activates a fresh session. The request-start baseline is left
// alone, so a regenerated id counts as a modification.
func (st *requestState) generate() error {
	id, err := st.m.genID(st.r)
	if err != nil {
		if !errors.Is(err, ErrIDGeneration) {
			err = errors.Join(ErrIDGeneration, err)
		}
		return err
	}
	s := &Session{
		id:     id,
		values: make(map[string]any),
		cookie: newCookie(st.m.cfg.Cookie, st.cookieSecure()),
	}
	st.activate(s)
	return nil
}

func (st *requestState) inflate(data *Data) {
	s := sessionFromData(st.cookieID, data)
	if s.cookie == nil {
		s.cookie = newCookie(st.m.cfg.Cookie, st.cookieSecure())
	} else if st.m.cfg.Cookie.Secure == SecureAuto {
		s.cookie.Secure = st.isSecure()
	}
	st.activate(s)
	st.originalID = s.id
	st.originalHash = s.Fingerprint()
	if !st.m.cfg.Resave {
		st.savedHash = st.originalHash
	}
}

// unset detaches the session from the request. The id is kept so the unset
// policy can still destroy the stored record.
func (st *requestState) unset() {
	st.sess = nil
}

func (st *requestState) regenerate(ctx context.Context) error {
	err := st.m.store.Destroy(ctx, st.id)
	if genErr := st.generate(); genErr != nil {
		return genErr
	}
	st.savedHash = ""
	return err
}

func (st *requestState) validID() bool {
	return validID(st.id)
}

func (st *requestState) isModified(s *Session) bool {
	return st.originalID != s.id || st.originalHash != s.Fingerprint()
}

func (st *requestState) isSaved(s *Session) bool {
	return st.originalID == s.id && st.savedHash != "" && st.savedHash == s.Fingerprint()
}

func (st *requestState) shouldSave() bool {
	s := st.sess
	if s == nil || !st.validID() {
		return false
	}
	if !st.m.cfg.SaveUninitialized && st.savedHash == "" && st.cookieID != st.id {
		return st.isModified(s)
	}
	return !st.isSaved(s)
}

func (st *requestState) shouldTouch() bool {
	if st.sess == nil || !st.validID() {
		return false
	}
	return st.cookieID == st.id && !st.shouldSave()
}

func (st *requestState) shouldSetCookie() bool {
	s := st.sess
	if s == nil || !st.validID() {
		return false
	}
	if st.cookieID != st.id {
		return st.m.cfg.SaveUninitialized || st.isModified(s)
	}
	return st.m.cfg.Rolling || (s.cookie.Expires() != nil && st.isModified(s))
}

func (st *requestState) shouldDestroy() bool {
	return st.id != "" && st.id != st.destroyedID && st.m.cfg.Unset == UnsetDestroy && st.sess == nil
}

// touch resets the cookie expiry at most once per request.
func (st *requestState) touch() {
	if st.touched {
		return
	}
	st.touched = true
	if st.sess != nil {
		st.sess.Touch()
	}
}

// emitCookie appends the Set-Cookie header when the request calls for it.
// It runs once, right before the response headers are written.
func (st *requestState) emitCookie(w http.ResponseWriter) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.cookieDone {
		return
	}
	st.cookieDone = true

	s := st.sess
	if s == nil {
		st.m.logger.DebugContext(st.r.Context(), "no session", logger.Event("cookie_skipped"))
		return
	}
	if !st.shouldSetCookie() {
		return
	}
	if s.cookie.Secure && !st.isSecure() {
		st.m.logger.DebugContext(st.r.Context(), "not secured", logger.Event("cookie_skipped"))
		return
	}

	st.touch()

	value := cookie.Encode(st.id, st.m.cfg.Secrets[0])
	http.SetCookie(w, s.cookie.HTTPCookie(st.m.cfg.CookieName, value))
}

// finalize runs the end-of-request store operation. Only the first call
// does anything; later calls return ErrAlreadyFinalized.
func (st *requestState) finalize(ctx context.Context) error {
	if !st.finalized.CompareAndSwap(false, true) {
		return ErrAlreadyFinalized
	}

	st.mu.Lock()
	op := st.endOperation()
	st.mu.Unlock()

	if op == nil {
		return nil
	}
	st.m.commit(ctx, st.r, op)
	return nil
}

func (st *requestState) endOperation() func(context.Context) error {
	if st.shouldDestroy() {
		id := st.id
		return func(ctx context.Context) error {
			return st.m.store.Destroy(ctx, id)
		}
	}

	s := st.sess
	if s == nil {
		return nil
	}

	st.touch()

	if st.shouldSave() {
		return s.Save
	}
	if st.m.toucher != nil && st.shouldTouch() {
		id, data := st.id, s.data()
		return func(ctx context.Context) error {
			return st.m.toucher.Touch(ctx, id, data)
		}
	}
	return nil
}

// tracker decorates storeOps for the request's active session so save and
// reload outcomes feed the request predicates.
type tracker struct {
	next storeOps
	st   *requestState
}

func (t *tracker) save(ctx context.Context, s *Session) error {
	if err := t.next.save(ctx, s); err != nil {
		return err
	}
	t.st.savedHash = s.Fingerprint()
	return nil
}

func (t *tracker) reload(ctx context.Context, s *Session) error {
	if err := t.next.reload(ctx, s); err != nil {
		return err
	}
	if t.st.m.cfg.Cookie.Secure == SecureAuto {
		s.cookie.Secure = t.st.isSecure()
	}
	t.st.activate(s)
	return nil
}

func (t *tracker) destroy(ctx context.Context, s *Session) error {
	t.st.unset()
	if err := t.next.destroy(ctx, s); err != nil {
		return err
	}
	t.st.destroyedID = s.id
	return nil
}

func (t *tracker) regenerate(ctx context.Context, s *Session) error {
	err := t.st.regenerate(ctx)
	fresh := t.st.sess
	if fresh == nil || fresh == s {
		return err
	}
	*s = *fresh
	t.st.sess = s
	return err
}
