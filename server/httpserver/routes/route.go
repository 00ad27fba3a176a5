package routes

import (
	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/THPTUHA/iclocksim/server/httpserver/controllers"
	"github.com/THPTUHA/iclocksim/server/httpserver/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func initialize(ginApp *gin.Engine, ctr *controllers.Controller) {
	ginApp.GET("/healthz", ctr.Health)

	ginApp.GET(adms.CDataPath, ctr.Handshake)
	ginApp.POST(adms.CDataPath, ctr.ReceiveData)

	routeGroup := ginApp.Group("/api/v1")
	routeGroup.GET("/records", ctr.ListRecords)
}

func Build(ctr *controllers.Controller, log *logrus.Entry) *gin.Engine {
	ginApp := gin.New()
	ginApp.Use(gin.Recovery())
	ginApp.Use(middlewares.RequestLogger(log))
	initialize(ginApp, ctr)

	return ginApp
}
