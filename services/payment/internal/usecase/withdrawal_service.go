package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/crypto"
	"go.uber.org/zap"
)

const bankAccountNumberField = "account_number"

var (
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiPattern  = regexp.MustCompile(`^[\w.\-]{2,256}@[a-zA-Z]{2,64}$`)
)

// WithdrawalInput is an author's withdrawal request. Exactly the details
// matching Method must be set.
type WithdrawalInput struct {
	AuthorID uuid.UUID
	Amount   decimal.Decimal
	Method   model.PayoutMethod
	Bank     *dto.BankDetails
	UPI      *dto.UPIDetails
}

// WithdrawalService runs the withdrawal review workflow
type WithdrawalService struct {
	transactor    repository.Transactor
	withdrawals   repository.WithdrawalRepository
	wallets       *WalletService
	notifier      provider.Notifier
	validate      *validator.Validate
	minWithdrawal decimal.Decimal
	cipher        crypto.EncryptionService
	now           func() time.Time
	logger        *zap.Logger
}

// WithdrawalOption customizes a WithdrawalService
type WithdrawalOption func(*WithdrawalService)

// WithPayoutEncryption seals bank account numbers before they are stored
func WithPayoutEncryption(enc crypto.EncryptionService) WithdrawalOption {
	return func(s *WithdrawalService) {
		s.cipher = enc
	}
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	transactor repository.Transactor,
	withdrawals repository.WithdrawalRepository,
	wallets repository.WalletRepository,
	notifier provider.Notifier,
	minWithdrawal decimal.Decimal,
	logger *zap.Logger,
	opts ...WithdrawalOption,
) *WithdrawalService {
	s := &WithdrawalService{
		transactor:    transactor,
		withdrawals:   withdrawals,
		wallets:       NewWalletService(wallets, logger),
		notifier:      notifier,
		validate:      NewPayoutValidator(),
		minWithdrawal: minWithdrawal,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPayoutValidator returns a validator that knows the ifsc and upi tags
// and reports fields by their JSON names
func NewPayoutValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ifsc", func(fl validator.FieldLevel) bool {
		return ifscPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("upi", func(fl validator.FieldLevel) bool {
		return upiPattern.MatchString(fl.Field().String())
	})
	return v
}

// Request reserves the amount from the author's wallet and opens a pending
// withdrawal. Either both happen or neither does.
func (s *WithdrawalService) Request(ctx context.Context, input WithdrawalInput) (*model.WithdrawalRequest, error) {
	details, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	if s.cipher != nil {
		if err := crypto.SealField(s.cipher, details, bankAccountNumberField); err != nil {
			return nil, err
		}
	}

	request := &model.WithdrawalRequest{
		ID:             uuid.New(),
		AuthorID:       input.AuthorID,
		Amount:         input.Amount,
		Status:         model.WithdrawalStatusPending,
		PaymentMethod:  input.Method,
		PaymentDetails: details,
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.wallets.Reserve(txCtx, request.AuthorID, request.Amount, request.ID); err != nil {
			return err
		}
		return s.withdrawals.Create(txCtx, request)
	})
	if err != nil {
		var insufficient *domainErrors.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			s.logger.Info("Withdrawal request exceeds balance",
				zap.String("author_id", input.AuthorID.String()),
				zap.String("requested", insufficient.Requested.String()),
				zap.String("available", insufficient.Available.String()))
			return nil, err
		}
		s.logger.Error("Failed to create withdrawal request",
			zap.String("author_id", input.AuthorID.String()),
			zap.String("amount", input.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		zap.String("withdrawal_id", request.ID.String()),
		zap.String("author_id", request.AuthorID.String()),
		zap.String("amount", request.Amount.String()),
		zap.String("payment_method", string(request.PaymentMethod)))

	return request, nil
}

func (s *WithdrawalService) validateInput(input WithdrawalInput) (datatypes.JSONMap, error) {
	if input.AuthorID == uuid.Nil {
		return nil, domainErrors.NewValidationError("author_id", "is required")
	}
	if !input.Amount.IsPositive() {
		return nil, domainErrors.NewValidationError("amount", "must be greater than zero")
	}
	if !input.Amount.Equal(input.Amount.Round(moneyPlaces)) {
		return nil, domainErrors.NewValidationError("amount", "must have at most two decimal places")
	}
	if s.minWithdrawal.IsPositive() && input.Amount.LessThan(s.minWithdrawal) {
		return nil, domainErrors.NewValidationError("amount",
			fmt.Sprintf("must be at least %s", s.minWithdrawal.StringFixed(2)))
	}

	switch input.Method {
	case model.PayoutMethodBank:
		if input.Bank == nil {
			return nil, domainErrors.NewValidationError("bank", "bank details are required")
		}
		if err := s.validateStruct(input.Bank); err != nil {
			return nil, err
		}
		return datatypes.JSONMap{
			"account_name":         input.Bank.AccountName,
			bankAccountNumberField: input.Bank.AccountNumber,
			"ifsc":                 input.Bank.IFSC,
			"bank_name":            input.Bank.BankName,
		}, nil

	case model.PayoutMethodUPI:
		if input.UPI == nil {
			return nil, domainErrors.NewValidationError("upi", "UPI details are required")
		}
		if err := s.validateStruct(input.UPI); err != nil {
			return nil, err
		}
		return datatypes.JSONMap{"upi_id": input.UPI.UPIID}, nil

	default:
		return nil, domainErrors.NewValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", input.Method))
	}
}

func (s *WithdrawalService) validateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domainErrors.NewValidationError(fe.Field(), validationMessage(fe))
	}
	return domainErrors.NewValidationError("", err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "numeric":
		return "must contain digits only"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "ifsc":
		return "must be a valid IFSC code"
	case "upi":
		return "must be a valid UPI id"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Approve marks a pending withdrawal approved for payout
func (s *WithdrawalService) Approve(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	request, err := s.transition(ctx, id, model.WithdrawalStatusApproved,
		func(txCtx context.Context, r *model.WithdrawalRequest) error {
			if r.Status != model.WithdrawalStatusPending {
				return invalidWithdrawalTransition(r, model.WithdrawalStatusApproved)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, provider.EventWithdrawalApproved, request)
	return request, nil
}

// Reject returns the reserved amount to the wallet and closes the request
func (s *WithdrawalService) Reject(ctx context.Context, id uuid.UUID, reason string) (*model.WithdrawalRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainErrors.NewValidationError("reason", "is required")
	}

	request, err := s.transition(ctx, id, model.WithdrawalStatusRejected,
		func(txCtx context.Context, r *model.WithdrawalRequest) error {
			if r.Status != model.WithdrawalStatusPending && r.Status != model.WithdrawalStatusApproved {
				return invalidWithdrawalTransition(r, model.WithdrawalStatusRejected)
			}
			if _, err := s.wallets.Release(txCtx, r.AuthorID, r.Amount, r.ID); err != nil {
				return err
			}
			r.RejectionReason = &reason
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, provider.EventWithdrawalRejected, request)
	return request, nil
}

// Complete records the payout of an approved withdrawal. There is no way
// back from completed.
func (s *WithdrawalService) Complete(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	request, err := s.transition(ctx, id, model.WithdrawalStatusCompleted,
		func(txCtx context.Context, r *model.WithdrawalRequest) error {
			if r.Status != model.WithdrawalStatusApproved {
				return invalidWithdrawalTransition(r, model.WithdrawalStatusCompleted)
			}
			_, err := s.wallets.FinalizeWithdrawal(txCtx, r.AuthorID, r.Amount, r.ID)
			return err
		})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, provider.EventWithdrawalCompleted, request)
	return request, nil
}

// transition locks the request, runs check (which may also touch the
// wallet) and saves the new status, all in one transaction
func (s *WithdrawalService) transition(
	ctx context.Context,
	id uuid.UUID,
	to model.WithdrawalStatus,
	check func(txCtx context.Context, r *model.WithdrawalRequest) error,
) (*model.WithdrawalRequest, error) {
	var request *model.WithdrawalRequest

	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.withdrawals.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := check(txCtx, r); err != nil {
			return err
		}

		from := r.Status
		r.Status = to
		if to.IsTerminal() {
			now := s.now()
			r.ResolvedAt = &now
		}
		if err := s.withdrawals.Save(txCtx, r); err != nil {
			return err
		}

		s.logger.Info("Withdrawal status changed",
			zap.String("withdrawal_id", r.ID.String()),
			zap.String("author_id", r.AuthorID.String()),
			zap.String("amount", r.Amount.String()),
			zap.String("from_status", string(from)),
			zap.String("to_status", string(to)))

		request = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

func invalidWithdrawalTransition(r *model.WithdrawalRequest, to model.WithdrawalStatus) error {
	return fmt.Errorf("cannot move withdrawal %s from %s to %s: %w",
		r.ID, r.Status, to, domainErrors.ErrInvalidWithdrawalTransition)
}

// Get returns a withdrawal request
func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, error) {
	return s.withdrawals.GetByID(ctx, id)
}

// PayoutDetails returns the request with its payout details decrypted, for
// the reviewer who sends the money
func (s *WithdrawalService) PayoutDetails(ctx context.Context, id uuid.UUID) (*model.WithdrawalRequest, map[string]interface{}, error) {
	request, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	details := make(map[string]interface{}, len(request.PaymentDetails))
	for k, v := range request.PaymentDetails {
		details[k] = v
	}

	if _, sealed := details[bankAccountNumberField+crypto.CiphertextSuffix]; sealed {
		if s.cipher == nil {
			return nil, nil, fmt.Errorf("withdrawal %s has encrypted payout details but no key is configured", id)
		}
		if err := crypto.OpenField(s.cipher, details, bankAccountNumberField); err != nil {
			return nil, nil, err
		}
	}

	return request, details, nil
}

// List returns a page of withdrawal requests
func (s *WithdrawalService) List(ctx context.Context, filter repository.WithdrawalFilter) (*dto.WithdrawalListResponse, error) {
	filter.SetDefaults()

	requests, total, err := s.withdrawals.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.WithdrawalListResponse{
		Withdrawals: requests,
		Pagination:  dto.NewPaginationInfo(total, filter.Limit, filter.Offset),
	}, nil
}

func (s *WithdrawalService) notify(ctx context.Context, event provider.NotificationEvent, r *model.WithdrawalRequest) {
	payload := map[string]interface{}{
		"withdrawal_id": r.ID.String(),
		"author_id":     r.AuthorID.String(),
		"amount":        r.Amount.StringFixed(2),
		"status":        string(r.Status),
	}
	if r.RejectionReason != nil {
		payload["reason"] = *r.RejectionReason
	}
	s.notifier.Notify(ctx, event, payload)
}
