package conf

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/tphakala/mediaedit/internal/buildinfo"
)

// Context carries what every command needs: the loaded settings, the
// filesystem projects live on, the output writer and build metadata.
type Context struct {
	Settings  *Settings
	Fs        afero.Fs
	Out       io.Writer
	BuildInfo *buildinfo.Context
}

// NewContext creates a context on the OS filesystem writing to stdout.
func NewContext(settings *Settings, info *buildinfo.Context) *Context {
	if settings == nil {
		settings = Defaults()
	}
	return &Context{
		Settings:  settings,
		Fs:        afero.NewOsFs(),
		Out:       os.Stdout,
		BuildInfo: info,
	}
}
