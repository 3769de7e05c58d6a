package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	notificationlog "github.com/crownline/pageant/internal/app/service/notification_log"
	"github.com/crownline/pageant/internal/app/service/reconcile"
	"github.com/crownline/pageant/internal/models"
	"github.com/crownline/pageant/pkg/logctx"
	"github.com/crownline/pageant/pkg/response"
	"go.uber.org/zap"
)

// Gateway identifiers are opaque but known to be alphanumeric-plus-hyphen.
// Anything else is rejected before it can reach queries or logs.
var trackingIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

func validTrackingParam(s string) bool {
	return s != "" && trackingIDPattern.MatchString(s)
}

type PaymentCallbackHandler struct {
	reconciler reconcile.Reconciler
	notifSvc   *notificationlog.Service
	Logger     *zap.SugaredLogger
}

func NewPaymentCallbackHandler(reconciler reconcile.Reconciler, notif *notificationlog.Service, log *zap.SugaredLogger) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{reconciler: reconciler, notifSvc: notif, Logger: log}
}

func (h *PaymentCallbackHandler) logTrigger(c *gin.Context, source, trackingID string, outcome *reconcile.Outcome, handleErr error) {
	if h.notifSvc == nil {
		return
	}
	traceID := c.GetString("traceID")
	dataBytes, _ := json.Marshal(c.Request.URL.Query())

	status := models.PaymentNotificationLogStatusHandled
	resMap := map[string]any{"outcome": outcome}
	if handleErr != nil {
		status = models.PaymentNotificationLogStatusHandleFailed
		resMap["error"] = handleErr.Error()
	}
	resBytes, _ := json.Marshal(resMap)
	resJSON := datatypes.JSON(resBytes)

	h.notifSvc.Save(c.Request.Context(), &models.PaymentNotificationLog{
		Source:           source,
		TraceID:          traceID,
		OrderTrackingID:  trackingID,
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(dataBytes),
		Result:           &resJSON,
		Status:           status,
	})
}

// @Summary      Gateway IPN
// @Description  Push notification from the payment gateway. Triggers reconciliation for the tracking id and acknowledges receipt.
// @Tags         Payments
// @Produce      json
// @Param        OrderTrackingId         query string true "Gateway tracking id"
// @Param        OrderMerchantReference  query string true "Merchant reference"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/payments/ipn [get]
func (h *PaymentCallbackHandler) ApiIPN() gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingID := c.Query("OrderTrackingId")
		merchantRef := c.Query("OrderMerchantReference")
		if !validTrackingParam(trackingID) || !validTrackingParam(merchantRef) {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "malformed IPN parameters"))
			return
		}

		lg := logctx.FromGin(c, h.Logger)
		lg.Infow("ipn_received", "tracking_id", trackingID, "merchant_ref", merchantRef)

		out, err := h.reconciler.Reconcile(c.Request.Context(), trackingID)
		h.logTrigger(c, "ipn", trackingID, out, err)

		// The gateway only wants an ack; per-id failures are retried by the
		// next notification or the admin sweep.
		ack := gin.H{
			"orderNotificationType":  "IPNCHANGE",
			"orderTrackingId":        trackingID,
			"orderMerchantReference": merchantRef,
			"status":                 http.StatusOK,
		}
		if err != nil {
			lg.Errorw("ipn_reconcile_error", "tracking_id", trackingID, "error", err.Error())
			ack["status"] = http.StatusInternalServerError
		}
		c.JSON(http.StatusOK, ack)
	}
}

// @Summary      Payment redirect callback
// @Description  Browser return from the gateway's hosted payment page. Reconciles and reports the current outcome.
// @Tags         Payments
// @Produce      json
// @Param        OrderTrackingId query string true "Gateway tracking id"
// @Success      200  {object}  response.APIResponse[reconcile.Outcome]
// @Router       /api/v1/payments/callback [get]
func (h *PaymentCallbackHandler) ApiCallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingID := c.Query("OrderTrackingId")
		if !validTrackingParam(trackingID) {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "malformed callback parameters"))
			return
		}

		lg := logctx.FromGin(c, h.Logger)
		lg.Infow("callback_received", "tracking_id", trackingID)

		out, err := h.reconciler.Reconcile(c.Request.Context(), trackingID)
		h.logTrigger(c, "callback", trackingID, out, err)
		if err != nil {
			lg.Errorw("callback_reconcile_error", "tracking_id", trackingID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, "verification pending, please check back shortly"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

func RegisterPaymentCallbackRoutes(r gin.IRouter, h *PaymentCallbackHandler) {
	r.GET("/ipn", h.ApiIPN())
	r.GET("/callback", h.ApiCallback())
}
