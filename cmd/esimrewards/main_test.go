package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esimwe/esimnew/internal/repository"
	"github.com/esimwe/esimnew/internal/repository/postgres"
	"github.com/esimwe/esimnew/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	getenv := func(string) string { return "" }
	getwd := func() (string, error) { return t.TempDir(), nil }

	runCommand := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		var out bytes.Buffer
		err := run(t.Context(), getenv, getwd, append([]string{
			"--database", pg.DSN,
			"--environment", "dev",
			"--log-level", "error",
		}, args...), &out)
		return out.String(), err
	}

	storage := postgres.NewStorage(pg.Pool)

	t.Run("no database configured", func(t *testing.T) {
		var out bytes.Buffer
		err := run(t.Context(), getenv, getwd, []string{"assign", "some-id"}, &out)

		require.Error(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		out, err := runCommand(t, "frobnicate")

		require.Error(t, err)
		require.Contains(t, out, "Usage", "usage must be printed for unknown commands")
	})

	t.Run("referral lifecycle", func(t *testing.T) {
		ada, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)
		bob, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Bob", Email: "bob@example.com"})
		require.NoError(t, err)

		out, err := runCommand(t, "seed-settings")
		require.NoError(t, err)
		require.Contains(t, out, "code length 8")

		out, err = runCommand(t, "assign", ada.ID.String())
		require.NoError(t, err)
		require.Contains(t, out, "assigned code")

		assigned, err := storage.User().GetUserByID(t.Context(), ada.ID)
		require.NoError(t, err)
		require.NotNil(t, assigned.ReferralCode)
		code := *assigned.ReferralCode

		out, err = runCommand(t, "link", code, bob.ID.String())
		require.NoError(t, err)
		require.Contains(t, out, "linked user")

		_, err = runCommand(t, "complete", bob.ID.String())
		require.NoError(t, err)

		out, err = runCommand(t, "referrals", ada.ID.String())
		require.NoError(t, err)
		require.Contains(t, out, "total earned: 10")
		require.Contains(t, out, "bob@example.com")
		require.Contains(t, out, "completed")

		out, err = runCommand(t, "history", ada.ID.String())
		require.NoError(t, err)
		require.Contains(t, out, "referral")
		require.Contains(t, out, "Bob")
	})

	t.Run("credit and debit", func(t *testing.T) {
		eve, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{Name: "Eve", Email: "eve@example.com"})
		require.NoError(t, err)

		out, err := runCommand(t, "credit", eve.ID.String(), "30", "welcome bonus")
		require.NoError(t, err)
		require.Contains(t, out, "adjusted by 30")

		out, err = runCommand(t, "debit", eve.ID.String(), "50", "too big")
		require.NoError(t, err)
		require.Contains(t, out, "insufficient balance")

		out, err = runCommand(t, "debit", eve.ID.String(), "10", "small purchase")
		require.NoError(t, err)
		require.Contains(t, out, "adjusted by -10")

		user, err := storage.User().GetUserByID(t.Context(), eve.ID)
		require.NoError(t, err)
		require.Equal(t, "20", user.RewardBalance.String())
	})

	t.Run("bad user id", func(t *testing.T) {
		_, err := runCommand(t, "assign", "not-a-uuid")

		require.Error(t, err)
		require.True(t, strings.Contains(err.Error(), "can't parse user id"))
	})
}
