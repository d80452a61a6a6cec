// Package session keeps the visitor identity in a signed, encrypted cookie.
package session

import (
    "errors"
    "net/http"

    "github.com/gorilla/sessions"
)

const (
    CookieName = "zx_visitor"
    visitorKey = "visitor_id"
)

var (
    ErrNoVisitor    = errors.New("no visitor in session")
    ErrHashKey      = errors.New("session hash key is empty")
    ErrBlockKeySize = errors.New("session block key must be 16, 24 or 32 bytes")
)

// Store wraps a gorilla cookie store under a fixed cookie name.
type Store struct {
    name  string
    store *sessions.CookieStore
}

// NewCookieStore builds a store that signs with hashKey and encrypts with
// blockKey (AES-128, 192 or 256).  maxAge is the cookie lifetime in seconds.
func NewCookieStore(hashKey, blockKey []byte, maxAge int, secure bool) (*Store, error) {
    if len(hashKey) == 0 {
        return nil, ErrHashKey
    }
    if err := CheckBlockKey(blockKey); err != nil {
        return nil, err
    }
    cs := sessions.NewCookieStore(hashKey, blockKey)
    cs.Options = &sessions.Options{
        Path:     "/",
        MaxAge:   maxAge,
        HttpOnly: true,
        Secure:   secure,
        SameSite: http.SameSiteLaxMode,
    }
    cs.MaxAge(maxAge)
    return &Store{name: CookieName, store: cs}, nil
}

// CheckBlockKey reports whether key is a valid AES key length.
func CheckBlockKey(key []byte) error {
    switch len(key) {
    case 16, 24, 32:
        return nil
    }
    return ErrBlockKeySize
}

// VisitorID returns the visitor stored in the request cookie.  A cookie
// that fails verification counts as no visitor.
func (s *Store) VisitorID(r *http.Request) (string, error) {
    sess, err := s.store.Get(r, s.name)
    if err != nil {
        return "", ErrNoVisitor
    }
    id, ok := sess.Values[visitorKey].(string)
    if !ok || id == "" {
        return "", ErrNoVisitor
    }
    return id, nil
}

// SetVisitorID writes the visitor identity cookie.
func (s *Store) SetVisitorID(r *http.Request, w http.ResponseWriter, id string) error {
    sess, err := s.store.New(r, s.name)
    if err != nil && sess == nil {
        return err
    }
    sess.Values[visitorKey] = id
    return s.store.Save(r, w, sess)
}

// Clear expires the visitor cookie.
func (s *Store) Clear(r *http.Request, w http.ResponseWriter) error {
    sess, err := s.store.New(r, s.name)
    if err != nil && sess == nil {
        return err
    }
    sess.Options.MaxAge = -1
    return s.store.Save(r, w, sess)
}
