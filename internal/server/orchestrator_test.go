package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castkit/castd/internal/cliconfig"
	"github.com/castkit/castd/internal/hwaddr"
	"github.com/castkit/castd/internal/metrics"
	"github.com/castkit/castd/internal/ports"
	"github.com/castkit/castd/pkg/log"
)

func newTestOrchestrator(collab *fakeCollab) (*Orchestrator, *Activity) {
	activity := NewActivity()
	bridge := NewBridge(activity, log.NewNoopLogger(), metrics.New())
	return NewOrchestrator(collab.collaborators(), log.NewNoopLogger(), bridge), activity
}

func testConfig() cliconfig.Config {
	cfg := cliconfig.DefaultConfig()
	cfg.Name = "castd@test"
	return cfg
}

func testID() hwaddr.DeviceID {
	return hwaddr.DeviceID{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
}

func TestOrchestrator_StartSuccess(t *testing.T) {
	collab := newFakeCollab()
	collab.boundPort = 41000
	orch, _ := newTestOrchestrator(collab)

	cfg := testConfig()
	cfg.Width, cfg.Height, cfg.Refresh, cfg.MaxFPS = 1920, 1080, 60, 30
	cfg.Overscan = true
	cfg.TCPPorts = [3]uint16{7100, 7000, 7001}
	cfg.UDPPorts = [3]uint16{7011, 6001, 6000}

	handles, err := orch.Start(cfg, testID())
	require.NoError(t, err)
	require.NotNil(t, handles)

	engine := collab.lastEngine()
	require.NotNil(t, engine)
	assert.True(t, engine.started)
	assert.Equal(t, uint16(1920), engine.width)
	assert.Equal(t, uint16(1080), engine.height)
	assert.Equal(t, uint16(60), engine.refresh)
	assert.Equal(t, uint16(30), engine.maxFPS)
	assert.True(t, engine.overscan)
	assert.Equal(t, [3]uint16{7100, 7000, 7001}, engine.tcp)
	assert.Equal(t, [3]uint16{7011, 6001, 6000}, engine.udp)

	assert.Equal(t, uint16(41000), handles.PrimaryPort)
	assert.Equal(t, uint16(41000), engine.port, "bound port pushed back to engine")

	require.NotNil(t, collab.video)
	require.NotNil(t, collab.audio)
	assert.True(t, collab.video.started)
	assert.True(t, collab.audio.started)

	mirror, ok := collab.registrar.port(ports.ServiceMirror)
	require.True(t, ok)
	assert.Equal(t, uint16(41000), mirror)

	// Companion comes from the explicitly configured third TCP port.
	companion, ok := collab.registrar.port(ports.ServiceCompanion)
	require.True(t, ok)
	assert.Equal(t, uint16(7001), companion)

	orch.Stop(handles)
}

func TestOrchestrator_CompanionPortDerivation(t *testing.T) {
	tests := []struct {
		name       string
		configured uint16
		primary    uint16
		want       uint16
		wantErr    bool
	}{
		{name: "explicit wins", configured: 7001, primary: 41000, want: 7001},
		{name: "primary plus one", configured: 0, primary: 41000, want: 41001},
		{name: "primary at max", configured: 0, primary: 65535, want: 65534},
		{name: "derived below floor", configured: 0, primary: 1023, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := companionPort(tt.configured, tt.primary)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrchestrator_VideoDisabled(t *testing.T) {
	collab := newFakeCollab()
	orch, _ := newTestOrchestrator(collab)

	cfg := testConfig()
	cfg.VideoSink = cliconfig.SinkDisabled
	cfg.MaxFPS = 30

	handles, err := orch.Start(cfg, testID())
	require.NoError(t, err)
	defer orch.Stop(handles)

	assert.Nil(t, handles.Video)
	assert.False(t, handles.VideoEnabled)
	assert.NotNil(t, handles.Audio, "audio still comes up without video")
	assert.Equal(t, uint16(1), collab.lastEngine().maxFPS,
		"framerate forced to 1 when no video is shown")
}

func TestOrchestrator_AudioDisabled(t *testing.T) {
	for _, cfgMutate := range []func(*cliconfig.Config){
		func(c *cliconfig.Config) { c.UseAudio = false },
		func(c *cliconfig.Config) { c.AudioSink = cliconfig.SinkDisabled },
	} {
		collab := newFakeCollab()
		orch, _ := newTestOrchestrator(collab)

		cfg := testConfig()
		cfgMutate(&cfg)

		handles, err := orch.Start(cfg, testID())
		require.NoError(t, err)
		assert.Nil(t, handles.Audio)
		assert.NotNil(t, handles.Video)
		orch.Stop(handles)
	}
}

func TestOrchestrator_StartFailureClasses(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fakeCollab)
		wantErr error
	}{
		{
			name:    "engine factory",
			mutate:  func(f *fakeCollab) { f.engineErr = assert.AnError },
			wantErr: ErrEngineInit,
		},
		{
			name:    "engine listener",
			mutate:  func(f *fakeCollab) { f.startErr = assert.AnError },
			wantErr: ErrEngineInit,
		},
		{
			name:    "render logger",
			mutate:  func(f *fakeCollab) { f.loggerErr = assert.AnError },
			wantErr: ErrRenderLoggerInit,
		},
		{
			name:    "video renderer",
			mutate:  func(f *fakeCollab) { f.videoErr = assert.AnError },
			wantErr: ErrVideoInit,
		},
		{
			name:    "audio renderer",
			mutate:  func(f *fakeCollab) { f.audioErr = assert.AnError },
			wantErr: ErrAudioInit,
		},
		{
			name:    "discovery",
			mutate:  func(f *fakeCollab) { f.discoveryErr = assert.AnError },
			wantErr: ErrDiscoveryInit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collab := newFakeCollab()
			tt.mutate(collab)
			orch, _ := newTestOrchestrator(collab)

			handles, err := orch.Start(testConfig(), testID())
			require.Nil(t, handles)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrchestrator_AudioFailureRollsBackEverything(t *testing.T) {
	collab := newFakeCollab()
	collab.audioErr = assert.AnError
	orch, _ := newTestOrchestrator(collab)

	handles, err := orch.Start(testConfig(), testID())
	require.Nil(t, handles)
	assert.ErrorIs(t, err, ErrAudioInit)

	assert.Equal(t, 1, collab.lastEngine().destroyed, "engine destroyed")
	assert.Equal(t, 1, collab.video.destroyed, "video renderer destroyed")
	assert.Nil(t, collab.registrar, "discovery never initialized")
	assert.Contains(t, collab.log.all(), "renderlogger.destroy")
}

func TestOrchestrator_StopOrderAndIdempotence(t *testing.T) {
	collab := newFakeCollab()
	orch, _ := newTestOrchestrator(collab)

	handles, err := orch.Start(testConfig(), testID())
	require.NoError(t, err)

	orch.Stop(handles)
	orch.Stop(handles) // second call must be a no-op
	orch.Stop(nil)     // nil handles never panic

	assert.Equal(t, []string{
		"engine.destroy",
		"registrar.unregister.mirror",
		"registrar.unregister.companion",
		"registrar.destroy",
		"audio.destroy",
		"video.destroy",
		"renderlogger.destroy",
	}, collab.log.all())

	assert.Equal(t, 1, collab.lastEngine().destroyed)
	assert.Equal(t, 1, collab.video.destroyed)
	assert.Equal(t, 1, collab.audio.destroyed)
	assert.Equal(t, 1, collab.registrar.destroyed)
}

func TestOrchestrator_StopPartialHandles(t *testing.T) {
	collab := newFakeCollab()
	orch, _ := newTestOrchestrator(collab)

	handles, err := orch.Start(testConfig(), testID())
	require.NoError(t, err)

	// Simulate a cycle where some handles were never created.
	handles.Audio = nil
	handles.Registrar = nil
	orch.Stop(handles)

	assert.Equal(t, 1, collab.lastEngine().destroyed)
	assert.Equal(t, 1, collab.video.destroyed)
	assert.Equal(t, 0, collab.audio.destroyed)
	assert.Equal(t, 0, collab.registrar.destroyed)
}
