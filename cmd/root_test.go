package cmd

import (
	"bytes"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediaedit/internal/buildinfo"
	"github.com/tphakala/mediaedit/internal/conf"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/manifest"
)

func newTestContext(t *testing.T) (*conf.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	ctx := conf.NewContext(nil, buildinfo.NewContext("1.0.0", "2026-10-01"))
	ctx.Fs = afero.NewMemMapFs()
	ctx.Out = out
	return ctx, out
}

// writeWAV writes n mono 16-bit samples at 8 kHz.
func writeWAV(t *testing.T, fs afero.Fs, path string, n int) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	data := make([]int, n)
	for i := range data {
		data[i] = i % 1000
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func execute(t *testing.T, ctx *conf.Context, args ...string) error {
	t.Helper()
	root := RootCommand(ctx)
	root.SetArgs(args)
	return root.ExecuteContext(t.Context())
}

func TestVersionCommand(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, execute(t, ctx, "version"))
	assert.Equal(t, "mediaedit 1.0.0 (built 2026-10-01)\n", out.String())
}

func TestInspectCommand(t *testing.T) {
	ctx, out := newTestContext(t)
	writeWAV(t, ctx.Fs, "/in/a.wav", 8000)

	require.NoError(t, execute(t, ctx, "inspect", "/in/a.wav"))
	assert.Contains(t, out.String(), "1ch 8000Hz 16bit")
	assert.Contains(t, out.String(), "16000 bytes")
	assert.Contains(t, out.String(), "1s")

	require.NoError(t, afero.WriteFile(ctx.Fs, "/in/bad.wav", []byte("not a wav"), 0o644))
	assert.Error(t, execute(t, ctx, "inspect", "/in/bad.wav"))
}

func TestConcatCommand(t *testing.T) {
	ctx, out := newTestContext(t)
	writeWAV(t, ctx.Fs, "/in/a.wav", 4000)
	writeWAV(t, ctx.Fs, "/in/b.wav", 8000)

	require.NoError(t, execute(t, ctx, "concat", "-o", "/out/joined.wav", "/in/a.wav", "/in/b.wav"))
	assert.Contains(t, out.String(), "1.5s")

	f, err := ctx.Fs.Open("/out/joined.wav")
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	require.True(t, dec.IsValidFile())
	require.NoError(t, dec.FwdToPCM())
	assert.Equal(t, 24000, dec.PCMSize)
}

func TestAddCreatesProject(t *testing.T) {
	ctx, out := newTestContext(t)
	writeWAV(t, ctx.Fs, "/in/intro.wav", 800)
	writeWAV(t, ctx.Fs, "/in/outro.wav", 800)
	t.Setenv("MEDIAEDIT_AUDIO_SAMPLERATE", "8000")

	require.NoError(t, execute(t, ctx, "add", "/proj", "/in/intro.wav", "/in/outro.wav"))
	assert.Contains(t, out.String(), "created /proj/presentation.yaml: 2 nodes, 2 media")

	p, err := manifest.Load(ctx.Fs, "/proj/presentation.yaml", document.Options{DataDir: "/proj/data"})
	require.NoError(t, err)
	children := p.Root().Children()
	require.Len(t, children, 2)
	assert.Equal(t, "intro", children[0].Name())
	assert.NotNil(t, children[1].Media("audio"))

	out.Reset()
	require.NoError(t, execute(t, ctx, "gc", "--defragment=false", "/proj"))
	assert.Contains(t, out.String(), "reachable 2, deleted media 0, deleted providers 0, defragmented 0 (0 bytes), purged 0, failures 0")
}

func TestInitWritesProjectSettings(t *testing.T) {
	ctx, out := newTestContext(t)
	writeWAV(t, ctx.Fs, "/in/intro.wav", 800)

	require.NoError(t, execute(t, ctx, "init", "--samplerate", "8000", "/proj"))
	assert.Equal(t, "initialized /proj: 1ch 8000Hz 16bit\n", out.String())

	settings, err := conf.LoadWithFlags(ctx.Fs, conf.ConfigPath("/proj"), nil)
	require.NoError(t, err)
	assert.Equal(t, 8000, settings.Audio.SampleRate)

	// add picks up the project format without any override
	out.Reset()
	require.NoError(t, execute(t, ctx, "add", "/proj", "/in/intro.wav"))
	assert.Contains(t, out.String(), "updated /proj/presentation.yaml: 1 nodes, 1 media")

	assert.Error(t, execute(t, ctx, "init", "/proj"), "a project is initialized once")
}

func TestAddRejectsIncompatibleFile(t *testing.T) {
	ctx, _ := newTestContext(t)
	writeWAV(t, ctx.Fs, "/in/intro.wav", 800)

	// the project default is 44.1 kHz
	err := execute(t, ctx, "add", "/proj", "/in/intro.wav")
	require.Error(t, err)
	exists, _ := afero.Exists(ctx.Fs, "/proj/presentation.yaml")
	assert.False(t, exists)
}

func TestGCRequiresManifest(t *testing.T) {
	ctx, _ := newTestContext(t)
	assert.Error(t, execute(t, ctx, "gc", "/nowhere"))
}
