package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crownline/pageant/internal/app/service/purchase"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/response"
)

// @Summary      Buy votes
// @Description  Creates a pending vote purchase and returns the gateway redirect URL. Zero-amount packages are confirmed immediately.
// @Tags         Votes
// @Accept       json
// @Produce      json
// @Param        request body purchase.VoteOrderRequest true "Vote purchase request"
// @Success      200  {object}  response.APIResponse[purchase.InitiationResult]
// @Router       /api/v1/votes [post]
func ApiInitiateVotes(svc purchase.Initiator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req purchase.VoteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		req.UserID = c.GetString("user_id")

		res, err := svc.InitiateVotes(c.Request.Context(), &req)
		if err != nil {
			status, code := purchaseErrorStatus(err)
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Buy a ticket
// @Description  Creates a pending ticket purchase and returns the gateway redirect URL.
// @Tags         Tickets
// @Accept       json
// @Produce      json
// @Param        request body purchase.TicketOrderRequest true "Ticket purchase request"
// @Success      200  {object}  response.APIResponse[purchase.InitiationResult]
// @Router       /api/v1/tickets [post]
func ApiInitiateTicket(svc purchase.Initiator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req purchase.TicketOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		req.UserID = c.GetString("user_id")

		res, err := svc.InitiateTicket(c.Request.Context(), &req)
		if err != nil {
			status, code := purchaseErrorStatus(err)
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// purchaseErrorStatus separates validation failures from gateway problems:
// the payer can fix the former, only waiting fixes the latter.
func purchaseErrorStatus(err error) (int, response.APIResponseCode) {
	switch {
	case errors.Is(err, purchase.ErrVotingClosed),
		errors.Is(err, purchase.ErrUnknownTarget),
		errors.Is(err, purchase.ErrInactiveTarget),
		errors.Is(err, purchase.ErrSoldOut):
		return http.StatusBadRequest, response.APIResponseCodeBadRequest
	case errors.Is(err, pesapal.ErrAuth),
		errors.Is(err, pesapal.ErrConfig),
		errors.Is(err, pesapal.ErrOrder),
		errors.Is(err, pesapal.ErrUnavailable):
		return http.StatusServiceUnavailable, response.APIResponseCodeUnavailable
	default:
		return http.StatusInternalServerError, response.APIResponseCodeError
	}
}

func RegisterPurchaseRoutes(r gin.IRouter, svc purchase.Initiator) {
	r.POST("/votes", ApiInitiateVotes(svc))
	r.POST("/tickets", ApiInitiateTicket(svc))
}
