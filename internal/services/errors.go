package services

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateAccount       = errors.New("username or email already registered")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidAmount          = errors.New("amount must be a positive whole number")
	ErrSelfTransferNotAllowed = errors.New("cannot transfer to yourself")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTopUpDisabled          = errors.New("adding coins is disabled")
)
