package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
)

// WalletDTO is the wallet summary shown to an author
type WalletDTO struct {
	AuthorID       uuid.UUID `json:"author_id"`
	Balance        string    `json:"balance"`
	TotalEarnings  string    `json:"total_earnings"`
	TotalWithdrawn string    `json:"total_withdrawn"`
}

// NewWalletDTO formats a wallet for API responses
func NewWalletDTO(w *model.Wallet) WalletDTO {
	return WalletDTO{
		AuthorID:       w.AuthorID,
		Balance:        w.Balance.StringFixed(2),
		TotalEarnings:  w.TotalEarnings.StringFixed(2),
		TotalWithdrawn: w.TotalWithdrawn.StringFixed(2),
	}
}

// WalletEntryDTO represents a simplified wallet journal entry for API responses
type WalletEntryDTO struct {
	EntryType    string    `json:"entry_type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// WalletEntryListResponse is the paginated wallet journal
type WalletEntryListResponse struct {
	Entries    []WalletEntryDTO `json:"entries"`
	Pagination PaginationInfo   `json:"pagination"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// NewPaginationInfo computes pagination metadata for a page of results
func NewPaginationInfo(total int64, limit, offset int) PaginationInfo {
	return PaginationInfo{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}
}

// PageParams contains pagination query parameters
type PageParams struct {
	Limit  int
	Offset int
}

// SetDefaults sets default values for pagination
func (p *PageParams) SetDefaults() {
	if p.Limit == 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
