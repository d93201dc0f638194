package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store with one entry per token hash, mirroring the
// row-per-token layout of the Postgres store, including its unique token_hash
// constraint.
type memStore struct {
	mu     sync.Mutex
	byHash map[string]string // token hash -> account id
}

func newMemStore() *memStore {
	return &memStore{byHash: map[string]string{}}
}

func (s *memStore) Insert(_ context.Context, _ time.Time, accountID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[tokenHash]; exists {
		return errors.New("duplicate token hash")
	}
	s.byHash[tokenHash] = accountID
	return nil
}

func (s *memStore) AccountIDByHash(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accountID, ok := s.byHash[tokenHash]
	if !ok {
		return "", ErrInvalidToken
	}
	return accountID, nil
}

func (s *memStore) DeleteByHash(_ context.Context, accountID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byHash[tokenHash] == accountID {
		delete(s.byHash, tokenHash)
	}
	return nil
}

func (s *memStore) DeleteAll(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, owner := range s.byHash {
		if owner == accountID {
			delete(s.byHash, hash)
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	mgr, err := NewJWTManager(testConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	st := newMemStore()
	return NewService(st, mgr), st
}

func TestService_IssueAndResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, time.Now().UTC(), "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	accountID, err := svc.Resolve(ctx, tok)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if accountID != "acct-1" {
		t.Fatalf("resolved %q, want acct-1", accountID)
	}
}

func TestService_EachLoginGetsItsOwnToken(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	// Same account, same second: the two logins must still be two distinct
	// sessions with two distinct entries in the token set.
	now := time.Now().UTC()
	t1, err := svc.Issue(ctx, now, "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	t2, err := svc.Issue(ctx, now, "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if t1 == t2 {
		t.Fatalf("expected distinct tokens per login")
	}
	if len(st.byHash) != 2 {
		t.Fatalf("token set holds %d entries, want 2", len(st.byHash))
	}

	for _, tok := range []string{t1, t2} {
		if _, err := svc.Resolve(ctx, tok); err != nil {
			t.Fatalf("Resolve(%q): %v", tok, err)
		}
	}
}

func TestService_RevokeOneKeepsOtherSessions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	phone, err := svc.Issue(ctx, time.Now().UTC(), "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	laptop, err := svc.Issue(ctx, time.Now().UTC().Add(time.Second), "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.RevokeOne(ctx, "acct-1", phone); err != nil {
		t.Fatalf("RevokeOne: %v", err)
	}

	if _, err := svc.Resolve(ctx, phone); err == nil {
		t.Fatalf("revoked token still resolves")
	}
	if _, err := svc.Resolve(ctx, laptop); err != nil {
		t.Fatalf("unrelated token stopped resolving: %v", err)
	}
}

func TestService_RevokeOneIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, time.Now().UTC(), "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.RevokeOne(ctx, "acct-1", tok); err != nil {
		t.Fatalf("RevokeOne: %v", err)
	}
	if err := svc.RevokeOne(ctx, "acct-1", tok); err != nil {
		t.Fatalf("second RevokeOne: %v", err)
	}
}

func TestService_RevokeAllClearsEverySession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		tok, err := svc.Issue(ctx, time.Now().UTC().Add(time.Duration(i)*time.Second), "acct-1")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		tokens = append(tokens, tok)
	}
	other, err := svc.Issue(ctx, time.Now().UTC(), "acct-2")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.RevokeAll(ctx, "acct-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	for _, tok := range tokens {
		if _, err := svc.Resolve(ctx, tok); err == nil {
			t.Fatalf("token survived RevokeAll")
		}
	}
	if _, err := svc.Resolve(ctx, other); err != nil {
		t.Fatalf("other account's token was revoked: %v", err)
	}
}

func TestService_ConcurrentIssueAndRevokeOneAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Concurrent mutation of a single account's token set must lose nothing:
	// every concurrently issued token stays valid, every concurrent revoke
	// sticks. The row-per-token store makes each operation a single write.
	const n = 32

	doomed := make([]string, n)
	for i := range doomed {
		tok, err := svc.Issue(ctx, now, "acct-1")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		doomed[i] = tok
	}

	kept := make([]string, n)
	errCh := make(chan error, 2*n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tok, err := svc.Issue(ctx, now, "acct-1")
			if err != nil {
				errCh <- err
				return
			}
			kept[i] = tok
		}(i)
		go func(i int) {
			defer wg.Done()
			if err := svc.RevokeOne(ctx, "acct-1", doomed[i]); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent operation failed: %v", err)
	}

	for _, tok := range kept {
		if _, err := svc.Resolve(ctx, tok); err != nil {
			t.Fatalf("issued token lost under concurrent revokes: %v", err)
		}
	}
	for _, tok := range doomed {
		if _, err := svc.Resolve(ctx, tok); err == nil {
			t.Fatalf("revoke lost under concurrent issues")
		}
	}
}

func TestService_SignatureValidButAbsentFails(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, time.Now().UTC(), "acct-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Remove from the set behind the service's back; the signature alone must
	// not be enough.
	delete(st.byHash, hashTokenHex(tok))

	if _, err := svc.Resolve(ctx, tok); err == nil {
		t.Fatalf("absent token still resolves")
	}
}

func TestService_ResolveBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, ""); err == nil {
		t.Fatalf("empty token resolved")
	}
	if _, err := svc.Resolve(ctx, string(make([]byte, 5000))); err == nil {
		t.Fatalf("oversized token resolved")
	}
}
