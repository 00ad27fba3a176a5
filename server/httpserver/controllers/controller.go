package controllers

import (
	"time"

	"github.com/THPTUHA/iclocksim/server/messaging"
	"github.com/THPTUHA/iclocksim/server/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ControllerConfig struct {
	Store     storage.Storage
	Publisher messaging.Publisher
	Location  *time.Location
	Logger    *logrus.Entry
}

type Controller struct {
	store     storage.Storage
	publisher messaging.Publisher
	location  *time.Location
	log       *logrus.Entry
	newID     func() string
}

func NewController(ctrconf *ControllerConfig) *Controller {
	ctr := &Controller{
		store:     ctrconf.Store,
		publisher: ctrconf.Publisher,
		location:  ctrconf.Location,
		log:       ctrconf.Logger,
		newID:     func() string { return uuid.New().String() },
	}
	if ctr.publisher == nil {
		ctr.publisher = messaging.NopPublisher{}
	}
	if ctr.location == nil {
		ctr.location = time.Local
	}
	return ctr
}
