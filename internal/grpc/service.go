package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "draftassist.v1.DraftAssist"

// DraftAssistServer is the server API for the DraftAssist service. Every message
// is a google.protobuf.Struct carrying the JSON form of the draft models.
type DraftAssistServer interface {
	CreateDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDrafts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkTaken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Block(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AutoPick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Advance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Timing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Needs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScorePick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, EventStream) error
}

// EventStream is the server side of StreamEvents
type EventStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

type unaryFunc func(DraftAssistServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DraftAssistServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DraftAssistServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DraftAssistServer).StreamEvents(in, &eventStream{stream})
}

// ServiceDesc describes the DraftAssist service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftAssistServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateDraft", DraftAssistServer.CreateDraft),
		unaryMethod("GetDraft", DraftAssistServer.GetDraft),
		unaryMethod("ListDrafts", DraftAssistServer.ListDrafts),
		unaryMethod("DeleteDraft", DraftAssistServer.DeleteDraft),
		unaryMethod("Pick", DraftAssistServer.Pick),
		unaryMethod("MarkTaken", DraftAssistServer.MarkTaken),
		unaryMethod("Block", DraftAssistServer.Block),
		unaryMethod("Recommend", DraftAssistServer.Recommend),
		unaryMethod("AutoPick", DraftAssistServer.AutoPick),
		unaryMethod("Advance", DraftAssistServer.Advance),
		unaryMethod("Simulate", DraftAssistServer.Simulate),
		unaryMethod("Timing", DraftAssistServer.Timing),
		unaryMethod("Needs", DraftAssistServer.Needs),
		unaryMethod("ScorePick", DraftAssistServer.ScorePick),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "draftassist/v1/draftassist.proto",
}

// Register adds the DraftAssist service to a gRPC server
func Register(s grpc.ServiceRegistrar, srv DraftAssistServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// decode copies a request Struct into v through its JSON form
func decode(req *structpb.Struct, v interface{}) error {
	if req == nil {
		req = &structpb.Struct{}
	}
	data, err := req.MarshalJSON()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// encode converts v, which must marshal to a JSON object, into a Struct
func encode(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
