package whisper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	valid := TranscriptionRequest{AudioPath: "/tmp/a.wav", ModelPath: "/tmp/m.bin"}
	require.NoError(t, valid.validate())

	tests := []struct {
		name    string
		mutate  func(*TranscriptionRequest)
		wantErr string
	}{
		{name: "missing audio", mutate: func(r *TranscriptionRequest) { r.AudioPath = " " }, wantErr: "audio path"},
		{name: "missing model", mutate: func(r *TranscriptionRequest) { r.ModelPath = "" }, wantErr: "model path"},
		{name: "bad task", mutate: func(r *TranscriptionRequest) { r.Task = "summarize" }, wantErr: "invalid task"},
		{name: "bad device", mutate: func(r *TranscriptionRequest) { r.Device = "tpu" }, wantErr: "invalid device"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := valid
			tt.mutate(&req)
			err := req.validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidTaskAndDevice(t *testing.T) {
	t.Parallel()

	require.True(t, ValidTask(TaskTranscribe))
	require.True(t, ValidTask(TaskTranslate))
	require.False(t, ValidTask("detect"))

	require.True(t, ValidDevice(DeviceAuto))
	require.True(t, ValidDevice(DeviceCPU))
	require.True(t, ValidDevice(DeviceCUDA))
	require.False(t, ValidDevice("metal"))
}

func TestJoinSegmentsSkipsEmptyText(t *testing.T) {
	t.Parallel()

	joined := JoinSegments([]Segment{
		{Text: " first "},
		{Text: "   "},
		{Text: "second"},
	})
	require.Equal(t, "first\nsecond", joined)

	require.Equal(t, "", JoinSegments(nil))
}
