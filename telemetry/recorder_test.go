package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/projection"
)

func TestNilRecorder(t *testing.T) {
	r, err := NewRecorder("")
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.NoError(t, r.Record([]projection.FrameStats{{Frame: 1}}))
	assert.Zero(t, r.Rows())
	assert.Empty(t, r.Dir())
	assert.NoError(t, r.Close())
}

func TestRecorderWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r, err := NewRecorder(dir)
	require.NoError(t, err)

	require.NoError(t, r.Record([]projection.FrameStats{
		{Frame: 1, Projector: "a", Rendering: true, Candidates: 3, Executed: 2, Culled: 1, Derived: 2, Cached: 2, VideoUpdated: true},
		{Frame: 1, Projector: "b"},
	}))
	require.NoError(t, r.Record(nil))
	require.NoError(t, r.Record([]projection.FrameStats{{Frame: 2, Projector: "a", Rendering: true, Executed: 2, Cached: 2}}))
	assert.Equal(t, 3, r.Rows())
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "frame,projector,rendering,candidates,culled,executed,derived,cached,video_updated,cone_rebuilt", lines[0])
	assert.Equal(t, "1,a,true,3,1,2,2,2,true,false", lines[1])
	assert.Equal(t, "2,a,true,0,0,2,0,2,false,false", lines[3])
	assert.Equal(t, 1, strings.Count(string(data), "projector"))
}
