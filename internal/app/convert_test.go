package app

import (
	"testing"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNumberToID(t *testing.T) {
	tests := []struct {
		name    string
		value   *structpb.Value
		want    int64
		wantErr bool
	}{
		{name: "positive integer", value: structpb.NewNumberValue(42), want: 42},
		{name: "zero", value: structpb.NewNumberValue(0), wantErr: true},
		{name: "negative", value: structpb.NewNumberValue(-3), wantErr: true},
		{name: "fraction", value: structpb.NewNumberValue(1.5), wantErr: true},
		{name: "two to the 63rd", value: structpb.NewNumberValue(1 << 63), wantErr: true},
		{name: "largest exact float below int64 max", value: structpb.NewNumberValue(1<<63 - 1024), want: 1<<63 - 1024},
		{name: "string", value: structpb.NewStringValue("7"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numberToID(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDueDateField(t *testing.T) {
	absent := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	d, present, err := dueDateField(absent, time.UTC)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, d)

	null := &structpb.Struct{Fields: map[string]*structpb.Value{fieldDueDate: structpb.NewNullValue()}}
	d, present, err = dueDateField(null, time.UTC)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Nil(t, d)

	set := &structpb.Struct{Fields: map[string]*structpb.Value{fieldDueDate: structpb.NewStringValue("2024-05-01")}}
	d, present, err = dueDateField(set, time.UTC)
	require.NoError(t, err)
	assert.True(t, present)
	require.NotNil(t, d)
	assert.True(t, d.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	wrong := &structpb.Struct{Fields: map[string]*structpb.Value{fieldDueDate: structpb.NewNumberValue(1)}}
	_, _, err = dueDateField(wrong, time.UTC)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskStructRoundTrip(t *testing.T) {
	created := time.Date(2024, 2, 3, 4, 5, 6, 7000, time.UTC)
	due := created.Add(48 * time.Hour)

	for _, dueDate := range []*time.Time{nil, &due} {
		in := domain.Task{
			ID:          9,
			Title:       "t",
			Description: "d",
			IsCompleted: true,
			DueDate:     dueDate,
			CreatedAt:   created,
			UpdatedAt:   created.Add(time.Minute),
		}

		s := mapDomainToStruct(in)
		if dueDate == nil {
			_, isNull := s.GetFields()[fieldDueDate].GetKind().(*structpb.Value_NullValue)
			assert.True(t, isNull)
		}

		out, err := mapStructToDomain(s)
		require.NoError(t, err)
		assert.Equal(t, in.ID, out.ID)
		assert.Equal(t, in.IsCompleted, out.IsCompleted)
		assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
		assert.True(t, in.UpdatedAt.Equal(out.UpdatedAt))
		if dueDate == nil {
			assert.Nil(t, out.DueDate)
		} else {
			require.NotNil(t, out.DueDate)
			assert.True(t, dueDate.Equal(*out.DueDate))
		}
	}
}
