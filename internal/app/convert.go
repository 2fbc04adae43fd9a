package app

import (
	"fmt"
	"math"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/dmehra2102/todokeeper/internal/stats"
	"google.golang.org/protobuf/types/known/structpb"
)

// Task field names on the wire.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldIsCompleted = "is_completed"
	fieldIsDeleted   = "is_deleted"
	fieldDueDate     = "due_date"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	fieldCompleted   = "completed"
)

func mapDomainToStruct(t domain.Task) *structpb.Struct {
	dueDate := structpb.NewNullValue()
	if t.DueDate != nil {
		dueDate = structpb.NewStringValue(formatTime(*t.DueDate))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:          structpb.NewNumberValue(float64(t.ID)),
		fieldTitle:       structpb.NewStringValue(t.Title),
		fieldDescription: structpb.NewStringValue(t.Description),
		fieldIsCompleted: structpb.NewBoolValue(t.IsCompleted),
		fieldIsDeleted:   structpb.NewBoolValue(t.IsDeleted),
		fieldDueDate:     dueDate,
		fieldCreatedAt:   structpb.NewStringValue(formatTime(t.CreatedAt)),
		fieldUpdatedAt:   structpb.NewStringValue(formatTime(t.UpdatedAt)),
	}}
}

func mapTasksToList(tasks []domain.Task) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(tasks))
	for _, t := range tasks {
		values = append(values, structpb.NewStructValue(mapDomainToStruct(t)))
	}
	return &structpb.ListValue{Values: values}
}

func mapStatsToStruct(s stats.Summary) *structpb.Struct {
	counts := make([]*structpb.Value, 0, len(s.Last7DaysCounts))
	for _, c := range s.Last7DaysCounts {
		counts = append(counts, structpb.NewNumberValue(float64(c)))
	}
	labels := make([]*structpb.Value, 0, len(s.Last7DaysLabels))
	for _, l := range s.Last7DaysLabels {
		labels = append(labels, structpb.NewStringValue(l))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"total_tasks":        structpb.NewNumberValue(float64(s.TotalTasks)),
		"completed_tasks":    structpb.NewNumberValue(float64(s.CompletedTasks)),
		"pending_tasks":      structpb.NewNumberValue(float64(s.PendingTasks)),
		"completion_rate":    structpb.NewNumberValue(float64(s.CompletionRate)),
		"last_7_days_counts": structpb.NewListValue(&structpb.ListValue{Values: counts}),
		"last_7_days_labels": structpb.NewListValue(&structpb.ListValue{Values: labels}),
	}}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// Decoding helpers. They report malformed fields wrapped in
// domain.ErrValidation so the transport maps them to InvalidArgument.

func invalidField(name, want string) error {
	return fmt.Errorf("%w: field %q must be %s", domain.ErrValidation, name, want)
}

func stringField(s *structpb.Struct, name string) (*string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, invalidField(name, "a string")
	}
	return &sv.StringValue, nil
}

func boolField(s *structpb.Struct, name string) (*bool, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, invalidField(name, "a boolean")
	}
	return &bv.BoolValue, nil
}

func idField(s *structpb.Struct) (int64, error) {
	v, ok := s.GetFields()[fieldID]
	if !ok {
		return 0, invalidField(fieldID, "present")
	}
	return numberToID(v)
}

func numberToID(v *structpb.Value) (int64, error) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, invalidField(fieldID, "a number")
	}
	n := nv.NumberValue
	if n <= 0 || n != math.Trunc(n) || n >= 1<<63 {
		return 0, invalidField(fieldID, "a positive integer")
	}
	return int64(n), nil
}

// dueDateField distinguishes an absent key (nil, false), an explicit null
// (nil, true) and a date string (t, true).
func dueDateField(s *structpb.Struct, loc *time.Location) (*time.Time, bool, error) {
	v, ok := s.GetFields()[fieldDueDate]
	if !ok {
		return nil, false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, true, nil
	case *structpb.Value_StringValue:
		t, err := domain.ParseDueDate(k.StringValue, loc)
		if err != nil {
			return nil, true, err
		}
		return t, true, nil
	default:
		return nil, true, invalidField(fieldDueDate, "a date string or null")
	}
}

// mapStructToDomain is the inverse of mapDomainToStruct.
func mapStructToDomain(s *structpb.Struct) (domain.Task, error) {
	var t domain.Task
	var err error

	if t.ID, err = idField(s); err != nil {
		return domain.Task{}, err
	}
	fields := s.GetFields()
	t.Title = fields[fieldTitle].GetStringValue()
	t.Description = fields[fieldDescription].GetStringValue()
	t.IsCompleted = fields[fieldIsCompleted].GetBoolValue()
	t.IsDeleted = fields[fieldIsDeleted].GetBoolValue()

	if raw := fields[fieldDueDate].GetStringValue(); raw != "" {
		d, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Task{}, fmt.Errorf("failed to parse due_date: %w", err)
		}
		t.DueDate = &d
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt].GetStringValue()); err != nil {
		return domain.Task{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt].GetStringValue()); err != nil {
		return domain.Task{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return t, nil
}

func mapListToDomain(l *structpb.ListValue) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		t, err := mapStructToDomain(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func mapStructToStats(s *structpb.Struct) stats.Summary {
	fields := s.GetFields()
	out := stats.Summary{
		TotalTasks:     int(fields["total_tasks"].GetNumberValue()),
		CompletedTasks: int(fields["completed_tasks"].GetNumberValue()),
		PendingTasks:   int(fields["pending_tasks"].GetNumberValue()),
		CompletionRate: int(fields["completion_rate"].GetNumberValue()),
	}
	for _, v := range fields["last_7_days_counts"].GetListValue().GetValues() {
		out.Last7DaysCounts = append(out.Last7DaysCounts, int(v.GetNumberValue()))
	}
	for _, v := range fields["last_7_days_labels"].GetListValue().GetValues() {
		out.Last7DaysLabels = append(out.Last7DaysLabels, v.GetStringValue())
	}
	return out
}
