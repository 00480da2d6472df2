package http

import (
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"live-quiz-engine/internal/app"
)

// NewRouter wires the host API, the host feed and the player gateway.
func NewRouter(service *app.QuizService, channel app.Channel, logger *zap.SugaredLogger) *httprouter.Router {
	api := NewAPI(service, logger)
	ws := NewWSHandler(service, channel, logger)

	mux := httprouter.New()
	mux.GET("/healthz", api.Health)

	mux.GET("/sessions", api.ListSessions)
	mux.POST("/sessions", api.CreateSession)
	mux.GET("/sessions/:code", api.GetSession)
	mux.DELETE("/sessions/:code", api.CloseSession)
	mux.POST("/sessions/:code/:action", api.Command)
	mux.GET("/sessions/:code/qr", api.QR)
	mux.GET("/sessions/:code/host", ws.ServeHost)

	mux.GET("/play/:code/ws", ws.ServePlayer)
	return mux
}
