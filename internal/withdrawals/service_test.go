package withdrawals

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/db/models"
	"github.com/aquatrade/aquatrade-backend/pkg/enums"
	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
)

type testEnv struct {
	svc    Service
	ledger ledger.Service
	conn   *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:withdrawals_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Wallet{}, &models.LedgerEntry{}, &models.WithdrawRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "withdrawals-test", Output: io.Discard})
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), ledgerSvc, db.FromGorm(conn), logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, ledger: ledgerSvc, conn: conn}
}

func fund(t *testing.T, env *testEnv, producerID uuid.UUID, amount int64) {
	t.Helper()
	_, err := env.ledger.Credit(context.Background(), ledger.ApplyInput{
		OwnerType: enums.WalletOwnerProducer,
		OwnerID:   producerID,
		Amount:    decimal.NewFromInt(amount),
		Source:    enums.LedgerSourceOrder,
		Reference: "SEED-" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

func TestRequestHoldsBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	producerID := uuid.New()
	fund(t, env, producerID, 500000)

	request, err := env.svc.Request(ctx, RequestInput{
		OwnerType:   enums.WalletOwnerProducer,
		OwnerID:     producerID,
		Amount:      decimal.NewFromInt(200000),
		BankAccount: "BCA 1234567890",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if request.Status != enums.WithdrawStatusPending {
		t.Fatalf("status = %s, want PENDING", request.Status)
	}

	// Balance drops immediately, before any admin decision.
	balance, err := env.ledger.Balance(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(300000)) {
		t.Fatalf("balance = %s, want 300000", balance)
	}
}

func TestRequestInsufficientBalanceLeavesNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	producerID := uuid.New()
	fund(t, env, producerID, 100000)

	_, err := env.svc.Request(ctx, RequestInput{
		OwnerType:   enums.WalletOwnerProducer,
		OwnerID:     producerID,
		Amount:      decimal.NewFromInt(500000),
		BankAccount: "BCA 1234567890",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	var requestCount int64
	if err := env.conn.Model(&models.WithdrawRequest{}).Count(&requestCount).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if requestCount != 0 {
		t.Fatalf("requests = %d, want 0", requestCount)
	}

	balance, err := env.ledger.Balance(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("balance = %s, want 100000", balance)
	}
}

func TestApproveKeepsDebit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	producerID := uuid.New()
	fund(t, env, producerID, 500000)

	request, err := env.svc.Request(ctx, RequestInput{
		OwnerType:   enums.WalletOwnerProducer,
		OwnerID:     producerID,
		Amount:      decimal.NewFromInt(500000),
		BankAccount: "BCA 1234567890",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := env.svc.Approve(ctx, request.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.WithdrawStatusApproved {
		t.Fatalf("status = %s, want APPROVED", approved.Status)
	}
	if approved.ProcessedAt == nil {
		t.Fatal("expected processed timestamp")
	}

	balance, err := env.ledger.Balance(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("balance = %s, want 0", balance)
	}
}

func TestRejectRefundsHold(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	producerID := uuid.New()
	fund(t, env, producerID, 500000)

	request, err := env.svc.Request(ctx, RequestInput{
		OwnerType:   enums.WalletOwnerProducer,
		OwnerID:     producerID,
		Amount:      decimal.NewFromInt(500000),
		BankAccount: "BCA 1234567890",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rejected, err := env.svc.Reject(ctx, request.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.WithdrawStatusRejected {
		t.Fatalf("status = %s, want REJECTED", rejected.Status)
	}

	// The hold comes back through a reversal entry, not by deleting the
	// original debit.
	balance, err := env.ledger.Balance(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("balance = %s, want 500000", balance)
	}

	var entryCount int64
	if err := env.conn.Model(&models.LedgerEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	// seed credit + hold debit + reversal credit
	if entryCount != 3 {
		t.Fatalf("entries = %d, want 3", entryCount)
	}

	wallet, err := env.ledger.FindWallet(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	audit, err := env.ledger.VerifyWallet(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !audit.Consistent {
		t.Fatalf("wallet drifted: %+v", audit)
	}
}

func TestProcessIsIdempotentPerOutcome(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	producerID := uuid.New()
	fund(t, env, producerID, 500000)

	request, err := env.svc.Request(ctx, RequestInput{
		OwnerType:   enums.WalletOwnerProducer,
		OwnerID:     producerID,
		Amount:      decimal.NewFromInt(100000),
		BankAccount: "BCA 1234567890",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := env.svc.Reject(ctx, request.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	// Replaying the same outcome is a no-op; the reversal is not doubled.
	if _, err := env.svc.Reject(ctx, request.ID); err != nil {
		t.Fatalf("reject replay: %v", err)
	}

	balance, err := env.ledger.Balance(ctx, enums.WalletOwnerProducer, producerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("balance = %s, want 500000", balance)
	}

	// The opposite outcome after a terminal state is a conflict.
	_, err = env.svc.Approve(ctx, request.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RequestInput
		code  pkgerrors.Code
	}{
		{
			"platform wallet",
			RequestInput{OwnerType: enums.WalletOwnerPlatform, Amount: decimal.NewFromInt(1), BankAccount: "x"},
			pkgerrors.CodeForbidden,
		},
		{
			"missing owner",
			RequestInput{OwnerType: enums.WalletOwnerProducer, Amount: decimal.NewFromInt(1), BankAccount: "x"},
			pkgerrors.CodeValidation,
		},
		{
			"zero amount",
			RequestInput{OwnerType: enums.WalletOwnerProducer, OwnerID: uuid.New(), BankAccount: "x"},
			pkgerrors.CodeValidation,
		},
		{
			"missing bank account",
			RequestInput{OwnerType: enums.WalletOwnerProducer, OwnerID: uuid.New(), Amount: decimal.NewFromInt(1)},
			pkgerrors.CodeValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Request(ctx, tc.input)
			if !pkgerrors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}
