package transport

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
)

// #region service-desc
const (
	serviceName       = "entityprofile.v1.EntitySnapshotService"
	getSnapshotMethod = "/" + serviceName + "/GetSnapshot"
)

// snapshotServer is the handler type of the snapshot service.
type snapshotServer interface {
	GetSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func getSnapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(snapshotServer).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSnapshotMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(snapshotServer).GetSnapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var snapshotServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*snapshotServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "entityprofile/v1/snapshot",
}
// #endregion service-desc

// #region source
// Source answers snapshot lookups for the models hosted on this node.
type Source interface {
	Snapshot(req snapshot.Request) snapshot.Snapshot
}
// #endregion source

// #region server
// Server serves the node-local entity snapshot over gRPC.
type Server struct {
	src    Source
	logger *zap.Logger
}

// NewServer wraps src. logger may be nil.
func NewServer(src Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{src: src, logger: logger.Named("snapshot-server")}
}

// Register attaches the snapshot service to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(&snapshotServiceDesc, s)
}

// GetSnapshot implements the unary RPC.
func (s *Server) GetSnapshot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeRequest(in)
	if err != nil {
		s.logger.Warn("rejecting snapshot request", zap.Error(err))
		return nil, toStatus(err)
	}
	snap := s.src.Snapshot(req)
	out, err := encodeSnapshot(snap)
	if err != nil {
		s.logger.Error("encode snapshot", zap.String("detector_id", req.DetectorID), zap.Error(err))
		return nil, toStatus(err)
	}
	s.logger.Debug("served snapshot",
		zap.String("detector_id", req.DetectorID),
		zap.String("entity", req.EntityValue),
		zap.Int64("total_updates", snap.TotalUpdates))
	return out, nil
}
// #endregion server
