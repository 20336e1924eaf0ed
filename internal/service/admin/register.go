package admin

import (
	"google.golang.org/grpc"

	"github.com/oggyb/chatible/internal/app"
)

// Registrar ties the admin service into the gRPC server
type Registrar struct {
	appCtx  *app.AppContext
	sweeper Sweeper
}

// NewRegistrar creates a new Registrar for the admin service
func NewRegistrar(appCtx *app.AppContext, sweeper Sweeper) *Registrar {
	return &Registrar{appCtx: appCtx, sweeper: sweeper}
}

// Register attaches the admin service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	RegisterAdminServer(s, NewAdminService(r.appCtx, r.sweeper))
}
