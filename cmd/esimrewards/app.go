package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/esimwe/esimnew/internal/db"
	"github.com/esimwe/esimnew/internal/logger"
	"github.com/esimwe/esimnew/internal/models"
	"github.com/esimwe/esimnew/internal/repository"
	"github.com/esimwe/esimnew/internal/repository/postgres"
	"github.com/esimwe/esimnew/internal/service/referral"
	"github.com/esimwe/esimnew/internal/service/reward"
)

const usage = `Usage: esimrewards [flags] <command> [args]

Commands:
  assign <user-id>                         assign a referral code to the user
  link <code> <user-id>                    link a signup to the code owner
  complete <user-id>                       settle the user's first purchase
  credit <user-id> <amount> <description>  credit the user's reward balance
  debit <user-id> <amount> <description>   debit the user's reward balance
  referrals <user-id>                      show the user's referral dashboard
  history <user-id>                        show the user's reward ledger
  seed-settings [<length> <bonus>]         install system settings
`

// App wires the referral core for command line administration. The
// storefront calls the same services in process from its request handlers.
type App struct {
	storage   repository.Storage
	referrals *referral.Service
	rewards   *reward.Service
	logger    logger.Logger

	pool *pgxpool.Pool
	out  io.Writer
}

func NewApp(ctx context.Context, c *Config, out io.Writer) (*App, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if c.DatabaseDSN == "" {
		return nil, errors.New("database connection string is required")
	}

	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	return &App{
		storage: storage,
		referrals: referral.NewService(referral.Config{
			CodeLength:  c.CodeLength,
			MaxAttempts: c.MaxAttempts,
		}, storage, log),
		rewards: reward.NewService(storage),
		logger:  log,
		pool:    pool,
		out:     out,
	}, nil
}

func (a *App) Close() {
	a.pool.Close()
}

// Run dispatches one command and prints its outcome
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errors.New("command required")
	}

	command, args := args[0], args[1:]

	switch command {
	case "assign":
		return a.runAssign(ctx, args)
	case "link":
		return a.runLink(ctx, args)
	case "complete":
		return a.runComplete(ctx, args)
	case "credit":
		return a.runTransaction(ctx, args, models.RewardTypeBonus, false)
	case "debit":
		return a.runTransaction(ctx, args, models.RewardTypePurchase, true)
	case "referrals":
		return a.runReferrals(ctx, args)
	case "history":
		return a.runHistory(ctx, args)
	case "seed-settings":
		return a.runSeedSettings(ctx, args)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) runAssign(ctx context.Context, args []string) error {
	userID, err := parseUserID(args, 0)
	if err != nil {
		return err
	}

	code, err := a.referrals.AssignCode(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "assigned code %s to user %s\n", code, userID)
	return nil
}

func (a *App) runLink(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("link needs a code and a user id")
	}
	code := args[0]
	userID, err := parseUserID(args, 1)
	if err != nil {
		return err
	}

	linked, err := a.referrals.ProcessReferral(ctx, code, userID)
	if err != nil {
		return err
	}

	if !linked {
		fmt.Fprintf(a.out, "code %s matches no user, nothing linked\n", code)
		return nil
	}
	fmt.Fprintf(a.out, "linked user %s to the owner of code %s\n", userID, code)
	return nil
}

func (a *App) runComplete(ctx context.Context, args []string) error {
	userID, err := parseUserID(args, 0)
	if err != nil {
		return err
	}

	if err := a.referrals.CompleteFirstPurchase(ctx, userID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "first purchase settled for user %s\n", userID)
	return nil
}

func (a *App) runTransaction(ctx context.Context, args []string, rewardType string, debit bool) error {
	if len(args) < 3 {
		return errors.New("credit/debit need a user id, an amount and a description")
	}
	userID, err := parseUserID(args, 0)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("can't parse amount %q: %w", args[1], err)
	}
	if debit {
		amount = amount.Neg()
	}

	ok, err := a.rewards.ProcessTransaction(ctx, reward.TransactionParams{
		UserID:      userID,
		Amount:      amount,
		Type:        rewardType,
		Description: args[2],
	})
	if err != nil {
		return err
	}

	if !ok {
		fmt.Fprintf(a.out, "transaction rejected: insufficient balance\n")
		return nil
	}
	fmt.Fprintf(a.out, "balance of user %s adjusted by %s\n", userID, amount)
	return nil
}

func (a *App) runReferrals(ctx context.Context, args []string) error {
	userID, err := parseUserID(args, 0)
	if err != nil {
		return err
	}

	dashboard, err := a.referrals.ListReferrals(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "total earned: %s\n", dashboard.TotalEarned)
	for _, r := range dashboard.Referrals {
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format("2006-01-02")
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02"), r.ReferredEmail, r.Status, r.BonusAmount, completed)
	}
	return nil
}

func (a *App) runHistory(ctx context.Context, args []string) error {
	userID, err := parseUserID(args, 0)
	if err != nil {
		return err
	}

	entries, err := a.rewards.History(ctx, userID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s -> %s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter, e.Description)
	}
	return nil
}

func (a *App) runSeedSettings(ctx context.Context, args []string) error {
	settings := models.DefaultSettings()

	if len(args) >= 2 {
		length, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("can't parse code length %q: %w", args[0], err)
		}
		bonus, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("can't parse bonus amount %q: %w", args[1], err)
		}
		settings = models.Settings{ReferralCodeLength: length, ReferralBonusAmount: bonus}
	}

	saved, err := a.storage.Settings().SaveSettings(ctx, settings)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "settings saved: code length %d, bonus %s\n", saved.ReferralCodeLength, saved.ReferralBonusAmount)
	return nil
}

func parseUserID(args []string, position int) (uuid.UUID, error) {
	if len(args) <= position {
		return uuid.Nil, errors.New("user id argument required")
	}

	userID, err := uuid.Parse(args[position])
	if err != nil {
		return uuid.Nil, fmt.Errorf("can't parse user id %q: %w", args[position], err)
	}

	return userID, nil
}
