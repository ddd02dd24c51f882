package dto

import "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"

// WithdrawalListResponse is a page of withdrawal requests
type WithdrawalListResponse struct {
	Withdrawals []*model.WithdrawalRequest `json:"withdrawals"`
	Pagination  PaginationInfo             `json:"pagination"`
}

// BankDetails are the payout fields required for bank transfers
type BankDetails struct {
	AccountName   string `json:"account_name" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=18"`
	IFSC          string `json:"ifsc" validate:"required,ifsc"`
	BankName      string `json:"bank_name" validate:"required,max=100"`
}

// UPIDetails are the payout fields required for UPI transfers
type UPIDetails struct {
	UPIID string `json:"upi_id" validate:"required,upi"`
}
