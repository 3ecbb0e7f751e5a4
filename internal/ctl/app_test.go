package ctl

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls int
	err   error
}

func (m *fakeMigrator) RunMigrations(context.Context, *sql.DB) error {
	m.calls++
	return m.err
}

type fakeRegistrar struct {
	got services.RegisterInput
	err error
}

func (r *fakeRegistrar) Register(_ context.Context, in services.RegisterInput) (*services.Session, error) {
	r.got = in
	if r.err != nil {
		return nil, r.err
	}
	return &services.Session{UserID: "u-1", Username: in.Username}, nil
}

func newTestApp(input string) (*App, *fakeMigrator, *fakeRegistrar, *bytes.Buffer) {
	m := &fakeMigrator{}
	r := &fakeRegistrar{}
	var out bytes.Buffer
	return &App{
		migrator: m,
		users:    r,
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}, m, r, &out
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestRun_Migrate(t *testing.T) {
	a, m, _, out := newTestApp("")

	require.NoError(t, a.Run(context.Background(), []string{"migrate"}))
	assert.Equal(t, 1, m.calls)
	assert.Contains(t, out.String(), "Migrations applied")

	m.err = errors.New("boom")
	assert.Error(t, a.Run(context.Background(), []string{"migrate"}))
}

func TestRun_Usage(t *testing.T) {
	a, _, _, out := newTestApp("")

	assert.ErrorIs(t, a.Run(context.Background(), nil), ErrUsage)
	assert.ErrorIs(t, a.Run(context.Background(), []string{"frobnicate"}), ErrUsage)
	assert.Contains(t, out.String(), "usage: bountyctl")
	assert.NoError(t, a.Run(context.Background(), []string{"help"}))
}

func TestAddUser_FromFlags(t *testing.T) {
	stubPasswords(t, "password1", "password1")
	a, _, r, out := newTestApp("")

	err := a.Run(context.Background(), []string{"adduser", "-u", "admin", "-e", "admin@example.com"})
	require.NoError(t, err)
	assert.Equal(t, services.RegisterInput{Username: "admin", Email: "admin@example.com", Password: "password1"}, r.got)
	assert.Contains(t, out.String(), "User admin created (id=u-1)")
}

func TestAddUser_Prompts(t *testing.T) {
	stubPasswords(t, "password1", "password1")
	a, _, r, _ := newTestApp("admin\nadmin@example.com\n")

	require.NoError(t, a.Run(context.Background(), []string{"adduser"}))
	assert.Equal(t, "admin", r.got.Username)
	assert.Equal(t, "admin@example.com", r.got.Email)
}

func TestAddUser_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "password1", "password2")
	a, _, r, _ := newTestApp("")

	err := a.Run(context.Background(), []string{"adduser", "-u", "admin", "-e", "a@example.com"})
	assert.EqualError(t, err, "passwords do not match")
	assert.Empty(t, r.got.Username)
}

func TestAddUser_ValidationPrinted(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	a, _, r, out := newTestApp("")
	r.err = common.NewValidationError("password", "must be at least 8 characters")

	err := a.Run(context.Background(), []string{"adduser", "-u", "admin", "-e", "a@example.com"})
	var verr *common.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, out.String(), "password: must be at least 8 characters")
}

func TestAddUser_Conflict(t *testing.T) {
	stubPasswords(t, "password1", "password1")
	a, _, r, _ := newTestApp("")
	r.err = common.ErrEmailTaken

	err := a.Run(context.Background(), []string{"adduser", "-u", "admin", "-e", "a@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		args        []string
		wantGlobal  []string
		wantCommand []string
	}{
		{[]string{"migrate"}, []string{}, []string{"migrate"}},
		{[]string{"-c", "conf.json", "migrate"}, []string{"-c", "conf.json"}, []string{"migrate"}},
		{[]string{"-d=postgres://x", "adduser", "-u", "a"}, []string{"-d=postgres://x"}, []string{"adduser", "-u", "a"}},
		{[]string{"-c", "conf.json"}, []string{"-c", "conf.json"}, nil},
	}

	for _, tt := range tests {
		global, command := SplitArgs(tt.args)
		assert.Equal(t, tt.wantGlobal, global)
		assert.Equal(t, tt.wantCommand, command)
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("hello world\n")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("lastline")), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "Name?", &out)
	assert.Error(t, err)
}
