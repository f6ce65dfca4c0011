package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func TestFFmpegRun_Success(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ffmpeg", "exit 0\n")

	f := NewFFmpeg(path, path)
	err := f.Run(context.Background(), "base", time.Minute, []string{"-i", "in.mp4"})
	assert.NoError(t, err)
}

func TestFFmpegRun_NonzeroExit(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ffmpeg", `echo "Invalid argument" >&2
exit 3
`)

	f := NewFFmpeg(path, path)
	err := f.Run(context.Background(), "filter", time.Minute, nil)
	require.Error(t, err)

	var toolErr *models.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "filter", toolErr.Stage)
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Equal(t, "Invalid argument", toolErr.Stderr)
}

func TestFFmpegRun_StderrIsBounded(t *testing.T) {
	dir := t.TempDir()
	// Emit well over the retained tail.
	path := writeScript(t, dir, "ffmpeg", `i=0
while [ $i -lt 200 ]; do
  echo "frame dropped: buffer overflow in demuxer xxxxxxxxxxxxxxxxxxxx" >&2
  i=$((i+1))
done
exit 1
`)

	f := NewFFmpeg(path, path)
	err := f.Run(context.Background(), "audio", time.Minute, nil)

	var toolErr *models.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.LessOrEqual(t, len(toolErr.Stderr), stderrTailLimit)
	// The tail keeps the end of the stream, where ffmpeg prints its verdict.
	assert.True(t, strings.HasSuffix(toolErr.Stderr, "demuxer xxxxxxxxxxxxxxxxxxxx"))
}

func TestFFmpegRun_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ffmpeg", "exec sleep 10\n")

	f := NewFFmpeg(path, path)
	err := f.Run(context.Background(), "subtitle", 50*time.Millisecond, nil)
	require.Error(t, err)

	var timeoutErr *models.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "subtitle", timeoutErr.Stage)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Limit)
}

func TestFFmpegProbe(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ffprobe", `cat <<'JSON'
{
  "format": {"duration": "12.480000", "size": "1048576"},
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001"}
  ]
}
JSON
`)

	f := NewFFmpeg(path, path)
	info, err := f.Probe(context.Background(), "in.mp4")
	require.NoError(t, err)

	assert.Equal(t, 12.48, info.Duration)
	assert.Equal(t, int64(1048576), info.Size)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, "h264", info.Codec)
	assert.InDelta(t, 29.97, info.FrameRate, 0.01)
}

func TestFFmpegProbe_SizeFallsBackToStat(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	require.NoError(t, os.WriteFile(input, []byte("0123456789"), 0644))

	path := writeScript(t, dir, "ffprobe", `cat <<'JSON'
{"format": {"duration": "1.0"}, "streams": []}
JSON
`)

	f := NewFFmpeg(path, path)
	info, err := f.Probe(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)
}

func TestFFmpegProbe_Failure(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ffprobe", `echo "No such file" >&2
exit 1
`)

	f := NewFFmpeg(path, path)
	_, err := f.Probe(context.Background(), "missing.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such file")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "cde", tail("abcde", 3))
	assert.Equal(t, "trimmed", tail("  trimmed \n", 20))
}
