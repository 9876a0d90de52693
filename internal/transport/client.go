package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
)

// #region node
// Node answers snapshot requests for the entity models it hosts.
type Node interface {
	Name() string
	GetSnapshot(ctx context.Context, req snapshot.Request) (snapshot.Snapshot, error)
}
// #endregion node

// #region client-struct
// SnapshotClient wraps the gRPC connection to one peer node.
type SnapshotClient struct {
	addr string
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}
// #endregion client-struct

// #region constructor
// NewSnapshotClient connects to the snapshot service of a peer.
func NewSnapshotClient(addr string, opts ...grpc.DialOption) (*SnapshotClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &SnapshotClient{addr: addr, conn: conn, cc: conn}, nil
}

// NewSnapshotClientWithConn creates a client on an existing connection.
// The caller keeps ownership of cc.
func NewSnapshotClientWithConn(name string, cc grpc.ClientConnInterface) *SnapshotClient {
	return &SnapshotClient{addr: name, cc: cc}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *SnapshotClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region get-snapshot
// Name returns the peer address.
func (c *SnapshotClient) Name() string {
	return c.addr
}

// GetSnapshot asks the peer for the entity's model state.
func (c *SnapshotClient) GetSnapshot(ctx context.Context, req snapshot.Request) (snapshot.Snapshot, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return snapshot.Snapshot{}, errkind.Wrap(errkind.Internal, err, "encode snapshot request")
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSnapshotMethod, in, out); err != nil {
		return snapshot.Snapshot{}, fromStatus(err, c.addr)
	}
	return decodeSnapshot(out)
}
// #endregion get-snapshot

// #region local
// Local serves snapshots straight from this node's cache without a network hop.
type Local struct {
	Cache *snapshot.Cache
}

func (l Local) Name() string {
	return "local:" + l.Cache.NodeID()
}

func (l Local) GetSnapshot(ctx context.Context, req snapshot.Request) (snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Snapshot{}, errkind.Wrap(errkind.Transport, err, "local snapshot")
	}
	return l.Cache.Snapshot(req), nil
}
// #endregion local
