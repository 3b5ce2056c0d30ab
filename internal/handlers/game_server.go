// internal/handlers/game_server.go
package handlers

import (
	"github.com/jason-s-yu/themind/internal/gateway"
	"github.com/sirupsen/logrus"
)

// GameServer holds what the HTTP handlers need to reach the sessions.
type GameServer struct {
	Gateway *gateway.Gateway
	Logger  *logrus.Logger
}

func NewGameServer(gw *gateway.Gateway, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &GameServer{Gateway: gw, Logger: logger}
}
