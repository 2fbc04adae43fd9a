package app

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "todokeeper.v1.TaskService"

// TaskServiceServer is the server API for the task service. Messages are
// protobuf well-known types; tasks travel as Struct.
type TaskServiceServer interface {
	ListActive(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListPending(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListCompleted(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListDeleted(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ListAll(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Search(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	CreateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCompleted(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTask(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	RestoreTask(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	DeleteTaskPermanently(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	PurgeDeleted(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CheckReminders(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterTaskServiceServer registers srv on s.
func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskServiceDesc, srv)
}

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }
func newInt64() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} }

var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListActive", newEmpty, TaskServiceServer.ListActive),
		unary("ListPending", newEmpty, TaskServiceServer.ListPending),
		unary("ListCompleted", newEmpty, TaskServiceServer.ListCompleted),
		unary("ListDeleted", newEmpty, TaskServiceServer.ListDeleted),
		unary("ListAll", newEmpty, TaskServiceServer.ListAll),
		unary("Search", newString, TaskServiceServer.Search),
		unary("CreateTask", newStruct, TaskServiceServer.CreateTask),
		unary("UpdateTask", newStruct, TaskServiceServer.UpdateTask),
		unary("SetCompleted", newStruct, TaskServiceServer.SetCompleted),
		unary("DeleteTask", newInt64, TaskServiceServer.DeleteTask),
		unary("RestoreTask", newInt64, TaskServiceServer.RestoreTask),
		unary("DeleteTaskPermanently", newInt64, TaskServiceServer.DeleteTaskPermanently),
		unary("PurgeDeleted", newEmpty, TaskServiceServer.PurgeDeleted),
		unary("GetStats", newEmpty, TaskServiceServer.GetStats),
		unary("CheckReminders", newEmpty, TaskServiceServer.CheckReminders),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "todokeeper/v1/task_service.proto",
}

// unary builds a MethodDesc with the same shape protoc-gen-go-grpc emits.
func unary[Req, Resp proto.Message](
	method string,
	newReq func() Req,
	call func(TaskServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TaskServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
