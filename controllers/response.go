package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/bitecraft/storefront-api/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondErrorDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func respondBindError(c *gin.Context, err error) {
	respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
}

// respondServiceError maps service-layer errors onto the error envelope. fallback is
// the message used for unexpected (datastore) errors.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var (
		validationErr *services.ValidationError
		mismatchErr   *services.AmountMismatchError
		gatewayErr    *services.GatewayError
		uploadErr     *utils.FileUploadError
	)

	switch {
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) > 0 {
			respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, validationErr.Fields)
			return
		}
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.Is(err, services.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, services.ErrOrderNotPayable):
		respondError(c, http.StatusConflict, "ORDER_NOT_PAYABLE", "Order is not awaiting payment")
	case errors.Is(err, services.ErrInvalidSignature):
		respondError(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "Invalid webhook signature")
	case errors.Is(err, services.ErrMissingReference):
		respondError(c, http.StatusBadRequest, "MISSING_REFERENCE", "Webhook payload has no reference")
	case errors.Is(err, services.ErrMalformedPayload):
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Malformed webhook payload")
	case errors.As(err, &mismatchErr):
		respondErrorDetails(c, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", "Charge does not match the order total", gin.H{
			"order_id":          mismatchErr.OrderID,
			"expected_amount":   mismatchErr.ExpectedAmount,
			"received_amount":   mismatchErr.ReceivedAmount,
			"expected_total":    models.FromMinorUnits(mismatchErr.ExpectedAmount),
			"received_total":    models.FromMinorUnits(mismatchErr.ReceivedAmount),
			"expected_currency": mismatchErr.ExpectedCurrency,
			"received_currency": mismatchErr.ReceivedCurrency,
		})
	case errors.As(err, &gatewayErr):
		respondError(c, http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR", gatewayErr.Message)
	case errors.Is(err, services.ErrCustomerNotFound):
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
	case errors.Is(err, services.ErrCustomerHasOrders):
		respondError(c, http.StatusConflict, "CUSTOMER_HAS_ORDERS", "Customers with orders cannot be deleted")
	case errors.Is(err, services.ErrChatNotFound):
		respondError(c, http.StatusNotFound, "CHAT_NOT_FOUND", "Chat not found")
	case errors.Is(err, services.ErrUnsupportedStatus):
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_STATUS", "Notifications are only sent for confirmed and ready orders")
	default:
		log.Printf("%s: %v", fallback, err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", fallback)
	}
}

// pagination reads ?page= and ?limit= (1-based page, limit capped at maxPageSize)
func pagination(c *gin.Context) (page, limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

func paginationMeta(page, limit int, total int64) gin.H {
	return gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
	}
}
