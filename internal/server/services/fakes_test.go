package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/dbx"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
	"github.com/dmitrijs2005/srpkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/srpkeeper/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/srpkeeper/internal/server/repositories/sessions"
)

type fakeAccounts struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*models.Account
	createErr error
}

func (f *fakeAccounts) Create(_ context.Context, email, name string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, a := range f.byID {
		if a.Email != nil && *a.Email == email {
			return nil, common.ErrDuplicateAccount
		}
	}
	f.seq++
	acc := &models.Account{ID: fmt.Sprintf("acc-%d", f.seq), Email: &email, DisplayName: name}
	f.byID[acc.ID] = acc
	return acc, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Email == nil {
		return nil, common.ErrorNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id string, name, image *string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Email == nil {
		return nil, common.ErrorNotFound
	}
	if name != nil {
		a.DisplayName = *name
	}
	if image != nil {
		img := *image
		a.Image = &img
	}
	c := *a
	return &c, nil
}

func (f *fakeAccounts) Anonymize(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Email == nil {
		return common.ErrorNotFound
	}
	a.Email = nil
	a.DisplayName = accounts.DeletedDisplayName
	a.Image = nil
	return nil
}

type fakeCredentials struct {
	mu      sync.Mutex
	byUser  map[string]*models.Credential
	lookups int
	getErr  error
}

func (f *fakeCredentials) Create(_ context.Context, c *models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[c.Username]; ok {
		return common.ErrDuplicateAccount
	}
	cp := *c
	f.byUser[c.Username] = &cp
	return nil
}

func (f *fakeCredentials) GetByUsername(_ context.Context, username string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byUser[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentials) DeleteByAccount(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, c := range f.byUser {
		if c.AccountID == accountID {
			delete(f.byUser, k)
		}
	}
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]*models.LoginSession
}

func (f *fakeSessions) Create(_ context.Context, s *models.LoginSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.byID[s.TokenID] = &cp
	return nil
}

func (f *fakeSessions) Exists(_ context.Context, tokenID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[tokenID]
	return ok && s.ExpiresAt.After(now), nil
}

func (f *fakeSessions) DeleteByAccount(_ context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.byID {
		if s.AccountID == accountID {
			delete(f.byID, k)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	accounts    *fakeAccounts
	credentials *fakeCredentials
	sessions    *fakeSessions
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		accounts:    &fakeAccounts{byID: map[string]*models.Account{}},
		credentials: &fakeCredentials{byUser: map[string]*models.Credential{}},
		sessions:    &fakeSessions{byID: map[string]*models.LoginSession{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return m.accounts }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository  { return m.credentials }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }

// fakeHandshakes is a single-use, expiring session map.
type fakeHandshakes struct {
	mu     sync.Mutex
	now    func() time.Time
	byID   map[string]models.HandshakeSession
	putErr error
}

func newFakeHandshakes(now func() time.Time) *fakeHandshakes {
	return &fakeHandshakes{now: now, byID: map[string]models.HandshakeSession{}}
}

func (f *fakeHandshakes) Put(_ context.Context, s *models.HandshakeSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	s.CreatedAt = f.now()
	s.ExpiresAt = s.CreatedAt.Add(common.HandshakeTTL)
	f.byID[s.SessionID] = *s
	return nil
}

func (f *fakeHandshakes) Take(_ context.Context, id string) (*models.HandshakeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, common.ErrSessionExpiredOrMissing
	}
	delete(f.byID, id)
	if s.Expired(f.now()) {
		return nil, common.ErrSessionExpiredOrMissing
	}
	return &s, nil
}

func (f *fakeHandshakes) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
