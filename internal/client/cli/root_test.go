package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/srpkeeper/internal/client/client"
	"github.com/dmitrijs2005/srpkeeper/internal/client/models"
	"github.com/dmitrijs2005/srpkeeper/internal/client/services"
	"github.com/dmitrijs2005/srpkeeper/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	regEmail, regName string
	regPass           []byte
	regErr            error

	loginEmail string
	loginPass  []byte
	loginErr   error

	vault     *cryptox.Vault
	unlockErr error

	me         *models.User
	meErr      error
	loggedOut  bool
	logoutErr  error
	pingErr    error
	closeCalls int
}

func (f *fakeAuth) Register(_ context.Context, email string, pw []byte, name string) (*models.User, error) {
	f.regEmail, f.regName, f.regPass = email, name, append([]byte(nil), pw...)
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{ID: "acc-1", Email: email, Name: name}, nil
}

func (f *fakeAuth) Login(_ context.Context, email string, pw []byte) (*services.Session, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pw...)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{User: models.User{ID: "acc-1", Email: email}, Vault: f.vault}, nil
}

func (f *fakeAuth) Unlock(context.Context, []byte) (*cryptox.Vault, error) {
	return f.vault, f.unlockErr
}

func (f *fakeAuth) Token(context.Context) (string, error) { return "tok", nil }

func (f *fakeAuth) Me(context.Context) (*models.User, error) { return f.me, f.meErr }

func (f *fakeAuth) Logout(context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}

func (f *fakeAuth) Ping(context.Context) error { return f.pingErr }

func (f *fakeAuth) Close(context.Context) error {
	f.closeCalls++
	return nil
}

// stubPasswords feeds the given passwords to successive prompts.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more input")
		}
		pw := []byte(pws[0])
		pws = pws[1:]
		return pw, nil
	}
}

func run(t *testing.T, auth *fakeAuth, stdin string, args ...string) (string, error) {
	t.Helper()
	app := NewApp()
	app.authService = auth

	root := NewRootCommand(app)
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRegister(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	auth := &fakeAuth{}

	out, err := run(t, auth, "", "register", "alice@example.com", "--name", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", auth.regEmail)
	assert.Equal(t, "Alice", auth.regName)
	assert.Equal(t, []byte("pw"), auth.regPass)
	assert.Contains(t, out, "Registered alice@example.com")
	assert.Equal(t, 1, auth.closeCalls)
}

func TestRegister_PromptsForEmail(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	auth := &fakeAuth{}

	_, err := run(t, auth, "bob@example.com\n", "register")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", auth.regEmail)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "pw", "other")
	auth := &fakeAuth{}

	_, err := run(t, auth, "", "register", "alice@example.com")
	assert.ErrorContains(t, err, "do not match")
	assert.Empty(t, auth.regEmail, "nothing sent")
}

func TestRegister_Duplicate(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	auth := &fakeAuth{regErr: client.ErrDuplicateAccount}

	_, err := run(t, auth, "", "register", "alice@example.com")
	assert.ErrorIs(t, err, client.ErrDuplicateAccount)
}

func TestLogin(t *testing.T) {
	stubPasswords(t, "pw")
	auth := &fakeAuth{}

	out, err := run(t, auth, "", "login", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", auth.loginEmail)
	assert.Equal(t, []byte("pw"), auth.loginPass)
	assert.Contains(t, out, "Logged in as alice@example.com")
}

func TestLogin_Failure(t *testing.T) {
	stubPasswords(t, "bad")
	auth := &fakeAuth{loginErr: client.ErrUnauthorized}

	_, err := run(t, auth, "", "login", "alice@example.com")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestWhoamiLogoutPing(t *testing.T) {
	auth := &fakeAuth{me: &models.User{ID: "acc-1", Email: "alice@example.com", Name: "alice"}}

	out, err := run(t, auth, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "acc-1\talice@example.com\talice\n", out)

	out, err = run(t, auth, "", "logout")
	require.NoError(t, err)
	assert.True(t, auth.loggedOut)
	assert.Equal(t, "Logged out\n", out)

	out, err = run(t, auth, "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	auth.meErr = client.ErrLocalDataNotAvailable
	_, err = run(t, auth, "", "whoami")
	assert.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestEncryptDecrypt(t *testing.T) {
	vault, err := cryptox.NewVault([]byte("pw"), []byte("salt"))
	require.NoError(t, err)
	auth := &fakeAuth{vault: vault}

	stubPasswords(t, "pw", "pw")
	out, err := run(t, auth, "", "encrypt", "buy milk")
	require.NoError(t, err)
	sealed := strings.TrimSpace(out)
	require.Contains(t, sealed, sealedSep)

	out, err = run(t, auth, "", "decrypt", sealed)
	require.NoError(t, err)
	assert.Equal(t, "buy milk\n", out)

	_, err = run(t, auth, "", "decrypt", "no-separator")
	assert.Error(t, err)
}

func TestEncrypt_WrongPassword(t *testing.T) {
	stubPasswords(t, "wrong")
	auth := &fakeAuth{unlockErr: client.ErrUnauthorized}

	_, err := run(t, auth, "", "encrypt", "x")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}
