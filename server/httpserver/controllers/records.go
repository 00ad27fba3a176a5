package controllers

import (
	"net/http"
	"strconv"

	"github.com/THPTUHA/iclocksim/server/storage"
	"github.com/gin-gonic/gin"
)

func (ctr *Controller) ListRecords(c *gin.Context) {
	q := storage.RecordQuery{
		DeviceSN: c.Query("sn"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"err": "invalid limit",
			})
			return
		}
		q.Limit = n
	}

	recs, err := ctr.store.ListRecords(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"err": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "list attendance record",
		"records": recs,
	})
}

func (ctr *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
