package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	pkgAuth "github.com/polkiloo/bitlend/internal/pkg/auth"
	"github.com/polkiloo/bitlend/internal/pkg/wallet"
	"github.com/polkiloo/bitlend/internal/storage/memory"
	testhelpers "github.com/polkiloo/bitlend/internal/test"
	"github.com/polkiloo/bitlend/internal/usecase"
)

func newFacade() (*LendingFacade, *memory.Storage) {
	st := memory.New()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	authUC := usecase.NewAuthUseCase(st.Users(), st.Sessions(), st.Locks(), testhelpers.HasherStub{}, testhelpers.StrategyStub{}, usecase.AuthOptions{}, logger)
	loanUC := usecase.NewLoanUseCase(st.Loans(), st.Transactions(), logger)
	return NewLendingFacade(authUC, loanUC), st
}

func TestLendingFacadeAuth(t *testing.T) {
	facade, _ := newFacade()
	ctx := context.Background()

	session, err := facade.Register(ctx, "Borrower@Example.com", "secret1")
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	if session.Method != model.AuthMethodCredential {
		t.Fatalf("unexpected method %q", session.Method)
	}

	login, err := facade.Login(ctx, "borrower@example.com", "secret1")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if login.UserID != session.UserID {
		t.Fatalf("expected same user, got %s and %s", login.UserID, session.UserID)
	}

	if _, err := facade.Login(ctx, "borrower@example.com", "wrong-pass"); !errors.Is(err, domainErrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	// a new login supersedes the registration session
	if _, err := facade.ParseToken(ctx, session.Token); !errors.Is(err, pkgAuth.ErrInvalidToken) {
		t.Fatalf("expected superseded token to be rejected, got %v", err)
	}
	id, err := facade.ParseToken(ctx, login.Token)
	if err != nil || id != login.UserID {
		t.Fatalf("unexpected parse result %s %v", id, err)
	}

	current, err := facade.CurrentSession(ctx, login.Token)
	if err != nil || current == nil || current.ID != login.ID {
		t.Fatalf("unexpected current session %+v %v", current, err)
	}

	if err := facade.Logout(ctx, login.Token); err != nil {
		t.Fatalf("logout returned error: %v", err)
	}
	current, err = facade.CurrentSession(ctx, login.Token)
	if err != nil || current != nil {
		t.Fatalf("expected no session after logout, got %+v %v", current, err)
	}

	purged, err := facade.PurgeExpiredSessions(ctx)
	if err != nil || purged != 0 {
		t.Fatalf("unexpected purge result %d %v", purged, err)
	}
}

func TestLendingFacadeLoanLifecycle(t *testing.T) {
	facade, _ := newFacade()
	ctx := context.Background()

	borrowerSession, err := facade.Register(ctx, "borrower@example.com", "secret1")
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	borrower := borrowerSession.UserID

	signer, err := wallet.NewKeyPairProvider()
	if err != nil {
		t.Fatal(err)
	}
	lenderSession, err := facade.ConnectWallet(ctx, signer)
	if err != nil {
		t.Fatalf("connect wallet returned error: %v", err)
	}
	lender := lenderSession.UserID

	draft, err := facade.DraftLoan(ctx, borrower, 100_000, 500, 30)
	if err != nil || draft.Status != model.LoanStatusDraft {
		t.Fatalf("unexpected draft %+v %v", draft, err)
	}
	if _, err := facade.CancelLoan(ctx, borrower, draft.ID); err != nil {
		t.Fatalf("cancel draft returned error: %v", err)
	}

	loan, err := facade.DraftLoan(ctx, borrower, 100_000, 500, 30)
	if err != nil {
		t.Fatalf("draft returned error: %v", err)
	}
	if loan, err = facade.PublishDraft(ctx, borrower, loan.ID); err != nil || loan.Status != model.LoanStatusOpen {
		t.Fatalf("unexpected publish result %+v %v", loan, err)
	}
	other, err := facade.PublishLoan(ctx, borrower, 5_000, 100, 7)
	if err != nil {
		t.Fatalf("publish returned error: %v", err)
	}

	listings, err := facade.Marketplace(ctx, model.MarketplaceFilter{ExcludeBorrower: lender, SortBy: model.SortPrincipal})
	if err != nil {
		t.Fatalf("marketplace returned error: %v", err)
	}
	var listed []model.MarketplaceListing
	for l := range listings {
		listed = append(listed, l)
	}
	if len(listed) != 2 || listed[0].Loan.ID != other.ID || listed[1].Loan.ID != loan.ID {
		t.Fatalf("unexpected listings %+v", listed)
	}

	if _, err := facade.AcceptLoan(ctx, borrower, loan.ID); !errors.Is(err, domainErrors.ErrSelfDealingNotAllowed) {
		t.Fatalf("expected self dealing error, got %v", err)
	}
	if _, err := facade.AcceptLoan(ctx, lender, loan.ID); err != nil {
		t.Fatalf("accept returned error: %v", err)
	}
	if loan, err = facade.DisburseLoan(ctx, lender, loan.ID); err != nil || loan.Status != model.LoanStatusActive {
		t.Fatalf("unexpected disburse result %+v %v", loan, err)
	}

	active, err := facade.ActiveLoans(ctx, lender)
	if err != nil || len(active) != 1 || active[0].ID != loan.ID {
		t.Fatalf("unexpected active loans %+v %v", active, err)
	}

	if _, err := facade.RecordRepayment(ctx, borrower, loan.ID, 100_000); !errors.Is(err, domainErrors.ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	tx, err := facade.RecordRepayment(ctx, borrower, loan.ID, usecase.AmountDue(*loan))
	if err != nil {
		t.Fatalf("repay returned error: %v", err)
	}
	if tx.Amount != 100_411 || tx.UserID != borrower || tx.Direction != model.DirectionOut {
		t.Fatalf("unexpected repayment entry %+v", tx)
	}

	got, err := facade.Loan(ctx, loan.ID)
	if err != nil || got.Status != model.LoanStatusRepaid {
		t.Fatalf("unexpected loan after repayment %+v %v", got, err)
	}

	stats, err := facade.Stats(ctx, lender)
	if err != nil {
		t.Fatalf("stats returned error: %v", err)
	}
	if stats.TotalLent != 100_000 || stats.InterestEarned != 411 || stats.ActiveLoans != 0 {
		t.Fatalf("unexpected lender stats %+v", stats)
	}

	txs, err := facade.Transactions(ctx, lender)
	if err != nil || len(txs) != 3 {
		t.Fatalf("expected three lender entries, got %+v %v", txs, err)
	}
}
