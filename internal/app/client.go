package app

import (
	"context"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/dmehra2102/todokeeper/internal/stats"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed wrapper over a connection to TaskService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// TaskUpdate lists the fields to change; nil fields are left as they are.
// DueDate uses the same formats as CreateTask. ClearDueDate removes it.
type TaskUpdate struct {
	Title        *string
	Description  *string
	DueDate      *string
	ClearDueDate bool
	IsCompleted  *bool
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) list(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) ([]domain.Task, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return mapListToDomain(out)
}

func (c *Client) ListActive(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "ListActive", &emptypb.Empty{}, opts...)
}

func (c *Client) ListPending(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "ListPending", &emptypb.Empty{}, opts...)
}

func (c *Client) ListCompleted(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "ListCompleted", &emptypb.Empty{}, opts...)
}

func (c *Client) ListDeleted(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "ListDeleted", &emptypb.Empty{}, opts...)
}

func (c *Client) ListAll(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "ListAll", &emptypb.Empty{}, opts...)
}

func (c *Client) Search(ctx context.Context, query string, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "Search", wrapperspb.String(query), opts...)
}

func (c *Client) CheckReminders(ctx context.Context, opts ...grpc.CallOption) ([]domain.Task, error) {
	return c.list(ctx, "CheckReminders", &emptypb.Empty{}, opts...)
}

func (c *Client) task(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (domain.Task, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, in, out, opts...); err != nil {
		return domain.Task{}, err
	}
	return mapStructToDomain(out)
}

// CreateTask adds a task. An empty dueDate means none.
func (c *Client) CreateTask(ctx context.Context, title, description, dueDate string, opts ...grpc.CallOption) (domain.Task, error) {
	fields := map[string]*structpb.Value{
		fieldTitle:       structpb.NewStringValue(title),
		fieldDescription: structpb.NewStringValue(description),
	}
	if dueDate != "" {
		fields[fieldDueDate] = structpb.NewStringValue(dueDate)
	}
	return c.task(ctx, "CreateTask", &structpb.Struct{Fields: fields}, opts...)
}

func (c *Client) UpdateTask(ctx context.Context, id int64, upd TaskUpdate, opts ...grpc.CallOption) (domain.Task, error) {
	fields := map[string]*structpb.Value{
		fieldID: structpb.NewNumberValue(float64(id)),
	}
	if upd.Title != nil {
		fields[fieldTitle] = structpb.NewStringValue(*upd.Title)
	}
	if upd.Description != nil {
		fields[fieldDescription] = structpb.NewStringValue(*upd.Description)
	}
	switch {
	case upd.ClearDueDate:
		fields[fieldDueDate] = structpb.NewNullValue()
	case upd.DueDate != nil:
		fields[fieldDueDate] = structpb.NewStringValue(*upd.DueDate)
	}
	if upd.IsCompleted != nil {
		fields[fieldIsCompleted] = structpb.NewBoolValue(*upd.IsCompleted)
	}
	return c.task(ctx, "UpdateTask", &structpb.Struct{Fields: fields}, opts...)
}

func (c *Client) SetCompleted(ctx context.Context, id int64, done bool, opts ...grpc.CallOption) (domain.Task, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:        structpb.NewNumberValue(float64(id)),
		fieldCompleted: structpb.NewBoolValue(done),
	}}
	return c.task(ctx, "SetCompleted", in, opts...)
}

func (c *Client) DeleteTask(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteTask", wrapperspb.Int64(id), new(emptypb.Empty), opts...)
}

func (c *Client) RestoreTask(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "RestoreTask", wrapperspb.Int64(id), new(emptypb.Empty), opts...)
}

func (c *Client) DeleteTaskPermanently(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteTaskPermanently", wrapperspb.Int64(id), new(emptypb.Empty), opts...)
}

func (c *Client) PurgeDeleted(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.invoke(ctx, "PurgeDeleted", &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) GetStats(ctx context.Context, opts ...grpc.CallOption) (stats.Summary, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetStats", &emptypb.Empty{}, out, opts...); err != nil {
		return stats.Summary{}, err
	}
	return mapStructToStats(out), nil
}
