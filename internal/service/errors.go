package service

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserSuspended         = errors.New("user suspended")
	ErrPasswordIncorrect     = errors.New("password incorrect")
	ErrTokenInvalid          = errors.New("token invalid")
	ErrPurposeInvalid        = errors.New("purpose invalid")
	ErrQRCountInvalid        = errors.New("qr count invalid")
	ErrQRPoolExhausted       = errors.New("qr pool exhausted")
	ErrQRCodeNotFound        = errors.New("qr code not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrOrderNotOwned         = errors.New("order does not belong to user")
	ErrOrderAlreadyProcessed = errors.New("order already processed")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrSignatureInvalid      = errors.New("payment signature invalid")
	ErrSignatureMissing      = errors.New("payment signature missing")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentNotCaptured    = errors.New("payment not captured")
	ErrAmountMismatch        = errors.New("payment amount mismatch")
	ErrOrderMismatch         = errors.New("payment order mismatch")
	ErrPaymentSaveFailed     = errors.New("payment save failed")
	ErrWebhookInvalid        = errors.New("webhook payload invalid")
	ErrEventSaveFailed       = errors.New("webhook event save failed")
)
