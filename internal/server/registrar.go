package server

import "google.golang.org/grpc"

// Registrar attaches one service implementation to a gRPC server.
// admin.Registrar is the only one today; tests register onto bufconn servers.
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}
