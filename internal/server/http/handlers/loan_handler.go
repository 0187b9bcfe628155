package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/server/http/dto"
	"github.com/polkiloo/bitlend/internal/usecase"
)

// LoanHandler manages loan commands and dashboard read-models.
type LoanHandler struct {
	facade LoanFacade
}

// NewLoanHandler constructs LoanHandler.
func NewLoanHandler(facade LoanFacade) *LoanHandler {
	return &LoanHandler{facade: facade}
}

// Create handles POST /api/loans.
func (h *LoanHandler) Create(c *gin.Context) {
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	principal, err := model.ParseBTC(req.Principal)
	if err != nil {
		respondError(c, domainErrors.ErrInvalidAmount)
		return
	}

	create := h.facade.PublishLoan
	if req.Draft {
		create = h.facade.DraftLoan
	}
	loan, err := create(c.Request.Context(), CurrentUserID(c), principal, req.RateBps, req.TermDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLoanResponse(*loan))
}

// Get handles GET /api/loans/:id.
func (h *LoanHandler) Get(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	loan, err := h.facade.Loan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponse(*loan))
}

// Publish handles POST /api/loans/:id/publish.
func (h *LoanHandler) Publish(c *gin.Context) {
	h.command(c, h.facade.PublishDraft)
}

// Accept handles POST /api/loans/:id/accept.
func (h *LoanHandler) Accept(c *gin.Context) {
	h.command(c, h.facade.AcceptLoan)
}

// Disburse handles POST /api/loans/:id/disburse.
func (h *LoanHandler) Disburse(c *gin.Context) {
	h.command(c, h.facade.DisburseLoan)
}

// Cancel handles POST /api/loans/:id/cancel.
func (h *LoanHandler) Cancel(c *gin.Context) {
	h.command(c, h.facade.CancelLoan)
}

func (h *LoanHandler) command(c *gin.Context, fn func(ctx context.Context, actor, id uuid.UUID) (*model.Loan, error)) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	loan, err := fn(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponse(*loan))
}

// Repay handles POST /api/loans/:id/repay.
func (h *LoanHandler) Repay(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var req dto.RepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request")
		return
	}
	amount, err := model.ParseBTCUpTo(req.Amount, math.MaxInt64)
	if err != nil {
		respondError(c, domainErrors.ErrInvalidAmount)
		return
	}

	tx, err := h.facade.RecordRepayment(c.Request.Context(), CurrentUserID(c), id, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResponse(*tx))
}

// Active handles GET /api/loans/active.
func (h *LoanHandler) Active(c *gin.Context) {
	loans, err := h.facade.ActiveLoans(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]dto.LoanResponse, 0, len(loans))
	for _, l := range loans {
		response = append(response, toLoanResponse(l))
	}
	c.JSON(http.StatusOK, response)
}

// Marketplace handles GET /api/loans/marketplace. The caller's own requests
// are never listed.
func (h *LoanHandler) Marketplace(c *gin.Context) {
	var query dto.MarketplaceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid_query")
		return
	}
	filter, err := toMarketplaceFilter(query)
	if err != nil {
		respondError(c, err)
		return
	}
	filter.ExcludeBorrower = CurrentUserID(c)

	listings, err := h.facade.Marketplace(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]dto.ListingResponse, 0)
	for l := range listings {
		response = append(response, dto.ListingResponse{LoanResponse: toLoanResponse(l.Loan), Rating: l.Rating})
	}
	c.JSON(http.StatusOK, response)
}

// Transactions handles GET /api/transactions.
func (h *LoanHandler) Transactions(c *gin.Context) {
	txs, err := h.facade.Transactions(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, toTransactionResponse(tx))
	}
	c.JSON(http.StatusOK, response)
}

// Stats handles GET /api/user/stats.
func (h *LoanHandler) Stats(c *gin.Context) {
	stats, err := h.facade.Stats(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatsResponse{
		TotalBorrowed:  stats.TotalBorrowed.BTC(),
		TotalLent:      stats.TotalLent.BTC(),
		ActiveLoans:    stats.ActiveLoans,
		InterestEarned: stats.InterestEarned.BTC(),
	})
}

func toMarketplaceFilter(q dto.MarketplaceQuery) (model.MarketplaceFilter, error) {
	sortBy, ok := model.ParseSortKey(q.Sort)
	if !ok {
		return model.MarketplaceFilter{}, domainErrors.ErrValidation
	}
	filter := model.MarketplaceFilter{
		MinRateBps:  q.MinRateBps,
		MaxTermDays: q.MaxTermDays,
		SortBy:      sortBy,
		Limit:       q.Limit,
	}
	var err error
	if q.MinPrincipal != "" {
		if filter.MinPrincipal, err = model.ParseBTC(q.MinPrincipal); err != nil {
			return model.MarketplaceFilter{}, domainErrors.ErrInvalidAmount
		}
	}
	if q.MaxPrincipal != "" {
		if filter.MaxPrincipal, err = model.ParseBTC(q.MaxPrincipal); err != nil {
			return model.MarketplaceFilter{}, domainErrors.ErrInvalidAmount
		}
	}
	return filter, nil
}

func toLoanResponse(l model.Loan) dto.LoanResponse {
	resp := dto.LoanResponse{
		ID:         l.ID.String(),
		BorrowerID: l.BorrowerID.String(),
		Principal:  l.Principal.BTC(),
		RateBps:    l.RateBps,
		TermDays:   l.TermDays,
		Interest:   usecase.Interest(l.Principal, l.RateBps, l.TermDays).BTC(),
		AmountDue:  usecase.AmountDue(l).BTC(),
		Status:     string(l.Status),
		CreatedAt:  l.CreatedAt,
		FundedAt:   l.FundedAt,
		DueAt:      l.DueAt,
		RepaidAt:   l.RepaidAt,
	}
	if l.LenderID != nil {
		lender := l.LenderID.String()
		resp.LenderID = &lender
	}
	return resp
}

func toTransactionResponse(tx model.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:        tx.ID.String(),
		Type:      string(tx.Type),
		Direction: string(tx.Direction),
		Amount:    tx.Amount.BTC(),
		CreatedAt: tx.CreatedAt,
	}
	if tx.LoanID != nil {
		loan := tx.LoanID.String()
		resp.LoanID = &loan
	}
	return resp
}
