package cache

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := NewCache(host, port, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func sampleInfo() *models.MediaInfo {
	return &models.MediaInfo{
		Duration:  12.48,
		Width:     1920,
		Height:    1080,
		Codec:     "h264",
		FrameRate: 29.97,
		Size:      1048576,
	}
}

func TestMediaInfoRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetMediaInfo(ctx, "/media/source.mp4", sampleInfo(), time.Minute))

	got, err := c.GetMediaInfo(ctx, "/media/source.mp4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleInfo(), got)
}

func TestMediaInfoMissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.GetMediaInfo(context.Background(), "/media/never-probed.mp4")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMediaInfoExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetMediaInfo(ctx, "/media/source.mp4", sampleInfo(), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := c.GetMediaInfo(ctx, "/media/source.mp4")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateMediaInfo(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetMediaInfo(ctx, "/media/source.mp4", sampleInfo(), time.Minute))
	require.NoError(t, c.InvalidateMediaInfo(ctx, "/media/source.mp4"))

	got, err := c.GetMediaInfo(ctx, "/media/source.mp4")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProbeKeyIsPathSensitive(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	a := sampleInfo()
	b := sampleInfo()
	b.Codec = "vp9"

	require.NoError(t, c.SetMediaInfo(ctx, "/media/a.mp4", a, time.Minute))
	require.NoError(t, c.SetMediaInfo(ctx, "/media/b.mp4", b, time.Minute))

	gotA, err := c.GetMediaInfo(ctx, "/media/a.mp4")
	require.NoError(t, err)
	gotB, err := c.GetMediaInfo(ctx, "/media/b.mp4")
	require.NoError(t, err)

	assert.Equal(t, "h264", gotA.Codec)
	assert.Equal(t, "vp9", gotB.Codec)
}
