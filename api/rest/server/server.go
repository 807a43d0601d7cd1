package server

import (
	"github.com/gin-gonic/gin"

	"github.com/nick/por-s3/internal/launcher"
	"github.com/nick/por-s3/internal/repository"
)

// Server is the HTTP intake mode of the launch decision service: it
// accepts the same S3 notification JSON the Lambda mode receives, for
// bucket-notification webhooks and local testing.
type Server struct {
	Addr     string
	Engine   *gin.Engine
	Launcher *launcher.Service
	Runs     repository.ProofRunRepository // nil when no audit DB is configured
}

func NewServer(addr string, svc *launcher.Service, runs repository.ProofRunRepository) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		Addr:     addr,
		Engine:   gin.Default(),
		Launcher: svc,
		Runs:     runs,
	}
}

func (s *Server) Run() error {
	return s.Engine.Run(s.Addr)
}
