package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crownline/pageant/internal/app/service/reconcile"
	"github.com/crownline/pageant/internal/app/service/statistics"
	"github.com/crownline/pageant/pkg/response"
)

// @Summary      Batch reconcile (Admin)
// @Description  Re-polls every pending tracking id and sweeps abandoned attempts. Per-id errors are reported alongside partial success counts.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[reconcile.SweepSummary]
// @Router       /api/v1/admin/payments/reconcile [post]
func ApiAdminReconcile(r reconcile.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary := r.SweepAll(c.Request.Context())
		c.JSON(http.StatusOK, response.OKT(summary))
	}
}

// @Summary      List Payment Transactions (Admin)
// @Description  Retrieves a paginated and filterable view of the payment ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ScanTransactionsRequest true "Listing request"
// @Success      200  {object}  response.APIResponse[statistics.ScanTransactionsResponse]
// @Router       /api/v1/admin/payments [post]
func ApiAdminListTransactions(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Revenue summary (Admin)
// @Description  Settled revenue grouped by purpose.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[statistics.RevenueSummary]
// @Router       /api/v1/admin/revenue [get]
func ApiAdminRevenue(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := stats.Revenue(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, rec reconcile.Reconciler, stats *statistics.Service) {
	r.POST("/payments/reconcile", ApiAdminReconcile(rec))
	r.POST("/payments", ApiAdminListTransactions(stats))
	r.GET("/revenue", ApiAdminRevenue(stats))
}
