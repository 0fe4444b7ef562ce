package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TranscriptionServer is implemented by inference servers.
type TranscriptionServer interface {
	Transcribe(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

// RegisterTranscriptionServer registers srv on s.
func RegisterTranscriptionServer(s grpc.ServiceRegistrar, srv TranscriptionServer) {
	s.RegisterService(&serviceDesc, srv)
}

func transcribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptionServer).Transcribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TranscribeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranscriptionServer).Transcribe(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transcribe", Handler: transcribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "livecaption/v1/transcription.proto",
}
