package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/THPTUHA/iclocksim/pkg/helper"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MaxPushBody bounds one push request. Larger batches are refused whole.
const MaxPushBody = 1 << 20

func replyError(c *gin.Context, code int, msg string) {
	c.String(code, "ERROR: %s", msg)
}

func serial(c *gin.Context) (string, bool) {
	sn := c.Query(adms.SerialParam)
	if sn == "" {
		replyError(c, http.StatusBadRequest, "missing SN")
		return "", false
	}
	if ok, why := helper.IsSerial(sn); !ok {
		replyError(c, http.StatusBadRequest, fmt.Sprintf("invalid SN (offending %q)", why))
		return "", false
	}
	return sn, true
}

// Handshake answers a terminal checking in.
func (ctr *Controller) Handshake(c *gin.Context) {
	sn, ok := serial(c)
	if !ok {
		return
	}
	ctr.log.WithField("sn", sn).Info("Handshake from device")
	c.String(http.StatusOK, adms.ReplyOK)
}

// ReceiveData stores the attendance lines a terminal pushes. Bad lines are
// logged and dropped, the rest of the batch is still accepted.
func (ctr *Controller) ReceiveData(c *gin.Context) {
	sn, ok := serial(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxPushBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctr.log.WithField("sn", sn).Warnf("push body over %d bytes refused", MaxPushBody)
			replyError(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		replyError(c, http.StatusBadRequest, err.Error())
		return
	}

	recs, errs := adms.ParseLines(string(body), ctr.location)
	for _, e := range errs {
		ctr.log.WithField("sn", sn).Warn(e)
	}
	for i := range recs {
		recs[i].ID = ctr.newID()
		recs[i].DeviceSN = sn
	}

	if len(recs) > 0 {
		if err := ctr.store.SaveRecords(c.Request.Context(), recs); err != nil {
			ctr.log.WithError(err).WithField("sn", sn).Error("save records")
			replyError(c, http.StatusInternalServerError, err.Error())
			return
		}
		for _, rec := range recs {
			ctr.publisher.Publish(rec)
		}
	}

	ctr.log.WithFields(logrus.Fields{
		"sn":       sn,
		"accepted": len(recs),
		"rejected": len(errs),
	}).Info(fmt.Sprintf("Received logs from device %s", sn))
	c.String(http.StatusOK, adms.ReplyOK)
}
