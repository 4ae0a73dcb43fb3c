package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/trie"
)

// Engine is the subset of pkg/engine.Engine the RPC server needs.
type Engine interface {
	MergeMessage(ctx context.Context, msg *message.Message) error
	MergeIdRegistryEvent(ctx context.Context, ev *message.IdRegistryEvent) error
}

// SyncSource is the subset of the local merkle trie the sync helpers of
// spec §6 expose to peers.
type SyncSource interface {
	GetSnapshot(prefix string) trie.Snapshot
	GetTrieNodeMetadata(prefix string) (trie.NodeMetadata, bool)
	AllSyncIdsByPrefix(prefix string) []trie.SyncID
	MessagesBySyncIds(ids []trie.SyncID) ([]*message.Message, error)
}

// Server implements the service defined below against an Engine and a
// SyncSource. Per-type getters (getCast, getSigner, ...) are a thin
// layer the stores already support directly and are intentionally left
// to a caller that wants them — the RPC surface is "consumed externally,
// not part of the core contract" (spec §6); the core's job is to expose
// submission and sync, which is what peer reconciliation actually needs.
type Server struct {
	engine Engine
	sync   SyncSource
}

func NewServer(engine Engine, sync SyncSource) *Server {
	return &Server{engine: engine, sync: sync}
}

func (s *Server) SubmitMessage(ctx context.Context, req *SubmitMessageRequest) (*SubmitMessageResponse, error) {
	if err := s.engine.MergeMessage(ctx, req.Message); err != nil {
		return &SubmitMessageResponse{Err: err.Error()}, nil
	}
	return &SubmitMessageResponse{}, nil
}

func (s *Server) SubmitIdRegistryEvent(ctx context.Context, req *SubmitIdRegistryEventRequest) (*SubmitIdRegistryEventResponse, error) {
	if err := s.engine.MergeIdRegistryEvent(ctx, req.Event); err != nil {
		return &SubmitIdRegistryEventResponse{Err: err.Error()}, nil
	}
	return &SubmitIdRegistryEventResponse{}, nil
}

func (s *Server) GetSnapshot(ctx context.Context, req *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	return &GetSnapshotResponse{Snapshot: s.sync.GetSnapshot(req.Prefix)}, nil
}

func (s *Server) GetTrieNodesByPrefix(ctx context.Context, req *GetTrieNodesByPrefixRequest) (*GetTrieNodesByPrefixResponse, error) {
	md, ok := s.sync.GetTrieNodeMetadata(req.Prefix)
	return &GetTrieNodesByPrefixResponse{Found: ok, Node: md}, nil
}

func (s *Server) GetAllSyncIdsByPrefix(ctx context.Context, req *GetAllSyncIdsByPrefixRequest) (*GetAllSyncIdsByPrefixResponse, error) {
	return &GetAllSyncIdsByPrefixResponse{Ids: s.sync.AllSyncIdsByPrefix(req.Prefix)}, nil
}

func (s *Server) GetAllMessagesBySyncIds(ctx context.Context, req *GetAllMessagesBySyncIdsRequest) (*GetAllMessagesBySyncIdsResponse, error) {
	msgs, err := s.sync.MessagesBySyncIds(req.Ids)
	if err != nil {
		return nil, err
	}
	return &GetAllMessagesBySyncIdsResponse{Messages: msgs}, nil
}

// ServiceDesc is registered by hand (grpc.Server.RegisterService)
// instead of through protoc-generated *_grpc.pb.go, per the wire-format
// note: no codegen tool is available in this environment.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "hub.Hub",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitMessage", Handler: submitMessageHandler},
		{MethodName: "SubmitIdRegistryEvent", Handler: submitIdRegistryEventHandler},
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
		{MethodName: "GetTrieNodesByPrefix", Handler: getTrieNodesByPrefixHandler},
		{MethodName: "GetAllSyncIdsByPrefix", Handler: getAllSyncIdsByPrefixHandler},
		{MethodName: "GetAllMessagesBySyncIds", Handler: getAllMessagesBySyncIdsHandler},
	},
	Metadata: "hub.rpc",
}

func submitMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).SubmitMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/SubmitMessage"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).SubmitMessage(ctx, req.(*SubmitMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func submitIdRegistryEventHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitIdRegistryEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).SubmitIdRegistryEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/SubmitIdRegistryEvent"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).SubmitIdRegistryEvent(ctx, req.(*SubmitIdRegistryEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/GetSnapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetSnapshot(ctx, req.(*GetSnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTrieNodesByPrefixHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTrieNodesByPrefixRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetTrieNodesByPrefix(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/GetTrieNodesByPrefix"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetTrieNodesByPrefix(ctx, req.(*GetTrieNodesByPrefixRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAllSyncIdsByPrefixHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAllSyncIdsByPrefixRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetAllSyncIdsByPrefix(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/GetAllSyncIdsByPrefix"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetAllSyncIdsByPrefix(ctx, req.(*GetAllSyncIdsByPrefixRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAllMessagesBySyncIdsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetAllMessagesBySyncIdsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetAllMessagesBySyncIds(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hub.Hub/GetAllMessagesBySyncIds"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).GetAllMessagesBySyncIds(ctx, req.(*GetAllMessagesBySyncIdsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches Server to gs under ServiceDesc.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}
