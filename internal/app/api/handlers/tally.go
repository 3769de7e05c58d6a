package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crownline/pageant/internal/app/service/statistics"
	"github.com/crownline/pageant/pkg/response"
)

// @Summary      Public vote tally
// @Description  Verified vote totals per contestant per category.
// @Tags         Votes
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]statistics.TallyItem]
// @Router       /api/v1/tally [get]
func ApiTally(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := stats.Tally(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(items))
	}
}

func RegisterTallyRoutes(r gin.IRouter, stats *statistics.Service) {
	r.GET("/tally", ApiTally(stats))
}
