package public

import (
	"errors"
	"net/http"

	"github.com/Rishiupp/pettrack-api/internal/http/response"
	"github.com/Rishiupp/pettrack-api/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError binds a service sentinel to an API error response.
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPurposeInvalid, code: response.CodeBadRequest, msg: "unknown order purpose"},
	{target: service.ErrQRCountInvalid, code: response.CodeBadRequest, msg: "qr code count out of range"},
	{target: service.ErrAmountMismatch, code: response.CodeBadRequest, msg: "claimed amount does not match the server price"},
	{target: service.ErrGatewayUnavailable, code: response.CodeInternal, msg: "payment gateway unavailable"},
}

var paymentVerifyErrorRules = []mappedHandlerError{
	{target: service.ErrSignatureMissing, code: response.CodeBadRequest, msg: "payment signature missing"},
	{target: service.ErrSignatureInvalid, code: response.CodeBadRequest, msg: "payment signature invalid"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderNotOwned, code: response.CodeForbidden, msg: "order belongs to another account"},
	{target: service.ErrOrderAlreadyProcessed, code: response.CodeConflict, msg: "order has already been processed"},
	{target: service.ErrOrderMismatch, code: response.CodeBadRequest, msg: "payment does not belong to this order"},
	{target: service.ErrAmountMismatch, code: response.CodeBadRequest, msg: "payment amount does not match the order"},
	{target: service.ErrPaymentNotCaptured, code: response.CodeBadRequest, msg: "payment is not captured"},
	{target: service.ErrGatewayUnavailable, code: response.CodeInternal, msg: "payment gateway unavailable"},
	{target: service.ErrPaymentSaveFailed, code: response.CodeInternal, msg: "payment could not be recorded"},
}

// Webhook rules carry real HTTP statuses: unverifiable or malformed
// deliveries get 400, anything a redelivery could fix gets 500.
var webhookErrorRules = []mappedHandlerError{
	{target: service.ErrSignatureMissing, code: http.StatusBadRequest, msg: "webhook signature missing"},
	{target: service.ErrSignatureInvalid, code: http.StatusBadRequest, msg: "webhook signature invalid"},
	{target: service.ErrWebhookInvalid, code: http.StatusBadRequest, msg: "webhook payload invalid"},
	{target: service.ErrAmountMismatch, code: http.StatusBadRequest, msg: "payment amount does not match the order"},
	{target: service.ErrOrderNotFound, code: http.StatusInternalServerError, msg: "order not available yet"},
	{target: service.ErrPaymentSaveFailed, code: http.StatusInternalServerError, msg: "payment could not be recorded"},
	{target: service.ErrEventSaveFailed, code: http.StatusInternalServerError, msg: "webhook event could not be recorded"},
}

var loginErrorRules = []mappedHandlerError{
	{target: service.ErrUserNotFound, code: response.CodeUnauthorized, msg: "phone or password incorrect"},
	{target: service.ErrPasswordIncorrect, code: response.CodeUnauthorized, msg: "phone or password incorrect"},
	{target: service.ErrUserSuspended, code: response.CodeForbidden, msg: "account suspended"},
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "order creation failed")
}

func respondPaymentVerifyError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentVerifyErrorRules, response.CodeInternal, "payment verification failed")
}

// respondWebhookError replies with the mapped HTTP status itself, not
// the 200 envelope the rest of the API uses. The gateway only
// redelivers on non-2xx, so a failed delivery must not look like
// success on the wire.
func respondWebhookError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "webhook processing failed"
	for _, rule := range webhookErrorRules {
		if errors.Is(err, rule.target) {
			status = rule.code
			msg = rule.msg
			break
		}
	}
	c.JSON(status, gin.H{"status_code": status, "msg": msg})
}

func respondLoginError(c *gin.Context, err error) {
	respondWithMappedError(c, err, loginErrorRules, response.CodeInternal, "login failed")
}
