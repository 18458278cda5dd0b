// Package manifest saves and loads a presentation's registries and node tree
// as a YAML document next to its data directory.
//
// Only file-backed providers are persisted. The undo history is not saved;
// a loaded presentation starts clean with an empty history.
package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/mediaedit/internal/audio"
	"github.com/tphakala/mediaedit/internal/document"
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/logger"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/pcm"
)

const component = "manifest"

// Version is the manifest schema version written by Save.
const Version = 1

// Media kinds.
const (
	KindAudio = "audio"
	KindRaw   = "raw"
)

// Manifest is the serialized form of a presentation.
type Manifest struct {
	Version   int            `yaml:"version"`
	Format    Format         `yaml:"format"`
	Providers []Provider     `yaml:"providers,omitempty"`
	Media     []Media        `yaml:"media,omitempty"`
	Tree      Node           `yaml:"tree"`
	External  []ExternalFile `yaml:"external,omitempty"`
}

type Format struct {
	Channels   int `yaml:"channels"`
	SampleRate int `yaml:"samplerate"`
	BitDepth   int `yaml:"bitdepth"`
}

type Provider struct {
	ID       string `yaml:"id"`
	MimeType string `yaml:"mimetype"`
	Path     string `yaml:"path"`
}

type Clip struct {
	Provider string `yaml:"provider"`
	Begin    int64  `yaml:"begin"`
	End      int64  `yaml:"end"`
}

// Media is one registered payload. Audio entries carry Format and Clips,
// raw entries carry MimeType and Providers.
type Media struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"`
	MimeType  string   `yaml:"mimetype,omitempty"`
	Format    *Format  `yaml:"format,omitempty"`
	Clips     []Clip   `yaml:"clips,omitempty"`
	Providers []string `yaml:"providers,omitempty"`
}

// Node mirrors a document node. Media maps channels to media IDs.
type Node struct {
	Name     string            `yaml:"name"`
	Media    map[string]string `yaml:"media,omitempty"`
	Children []Node            `yaml:"children,omitempty"`
}

type ExternalFile struct {
	Name      string   `yaml:"name"`
	Media     []string `yaml:"media,omitempty"`
	Providers []string `yaml:"providers,omitempty"`
}

func formatOf(f *pcm.FormatInfo) Format {
	return Format{Channels: f.Channels(), SampleRate: f.SampleRate(), BitDepth: f.BitDepth()}
}

func (f Format) info() (*pcm.FormatInfo, error) {
	return pcm.NewFormatInfo(f.Channels, f.SampleRate, f.BitDepth)
}

// Build captures p as a Manifest.
func Build(p *document.Presentation) (*Manifest, error) {
	m := &Manifest{Version: Version, Format: formatOf(p.Format())}

	for _, dp := range p.Providers().All() {
		fp, ok := dp.(*media.FileDataProvider)
		if !ok {
			return nil, errors.Incompatible(component, "data provider %s is not file-backed and cannot be saved", dp.ID())
		}
		m.Providers = append(m.Providers, Provider{ID: fp.ID(), MimeType: fp.MimeType(), Path: fp.RelativePath()})
	}

	for _, md := range p.Media().All() {
		entry, err := mediaEntry(md)
		if err != nil {
			return nil, err
		}
		m.Media = append(m.Media, entry)
	}

	m.Tree = nodeEntry(p.Root())

	for _, f := range p.ExternalFiles().Files() {
		ef, ok := f.(*media.ExternalFileData)
		if !ok {
			return nil, errors.Incompatible(component, "external file of type %T cannot be saved", f)
		}
		entry := ExternalFile{Name: ef.Name}
		for _, md := range ef.Media {
			entry.Media = append(entry.Media, md.ID())
		}
		for _, dp := range ef.Providers {
			entry.Providers = append(entry.Providers, dp.ID())
		}
		m.External = append(m.External, entry)
	}
	return m, nil
}

func mediaEntry(md media.MediaData) (Media, error) {
	switch v := md.(type) {
	case *audio.MediaData:
		f := formatOf(v.Format())
		entry := Media{ID: v.ID(), Kind: KindAudio, Format: &f}
		for _, c := range v.Clips() {
			entry.Clips = append(entry.Clips, Clip{Provider: c.Provider.ID(), Begin: c.Begin, End: c.End})
		}
		return entry, nil
	case *media.RawMediaData:
		entry := Media{ID: v.ID(), Kind: KindRaw, MimeType: v.MimeType()}
		for _, dp := range v.UsedDataProviders() {
			entry.Providers = append(entry.Providers, dp.ID())
		}
		return entry, nil
	default:
		return Media{}, errors.Incompatible(component, "media %s of type %T cannot be saved", md.ID(), md)
	}
}

func nodeEntry(n *document.Node) Node {
	out := Node{Name: n.Name()}
	for _, ch := range n.Channels() {
		if out.Media == nil {
			out.Media = make(map[string]string)
		}
		out.Media[ch] = n.Media(ch).ID()
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, nodeEntry(c))
	}
	return out
}

// Save writes p's manifest to path on fs and marks p as saved. The file is
// written to a temporary sibling first and renamed into place.
func Save(fs afero.Fs, path string, p *document.Presentation) error {
	m, err := Build(p)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("error marshaling manifest: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileError(err, path, 0)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return errors.FileError(err, tmp, int64(len(data)))
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return errors.FileError(err, path, int64(len(data)))
	}

	p.MarkSaved()
	logger.Global().Module(component).Info("manifest saved",
		logger.String("path", path),
		logger.Int("media", len(m.Media)),
		logger.Int("providers", len(m.Providers)))
	return nil
}

// Read parses the manifest at path without building a presentation.
func Read(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) {
			return nil, errors.NotFound(component, "manifest", path)
		}
		return nil, errors.FileError(err, path, 0)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}
	if m.Version != Version {
		return nil, errors.Incompatible(component, "manifest version %d is not supported", m.Version)
	}
	return &m, nil
}

// Load reads the manifest at path and rebuilds the presentation on fs.
// opts supplies directories, logging and metrics; the default format is
// taken from the manifest.
func Load(fs afero.Fs, path string, opts document.Options) (*document.Presentation, error) {
	m, err := Read(fs, path)
	if err != nil {
		return nil, err
	}
	return m.Restore(fs, opts)
}

// Restore rebuilds a presentation from m.
func (m *Manifest) Restore(fs afero.Fs, opts document.Options) (*document.Presentation, error) {
	format, err := m.Format.info()
	if err != nil {
		return nil, err
	}
	opts.Format = format
	p, err := document.New(fs, opts)
	if err != nil {
		return nil, err
	}

	for _, e := range m.Providers {
		if _, err := p.Providers().RestoreFileProvider(e.ID, e.MimeType, e.Path); err != nil {
			return nil, err
		}
	}

	for _, e := range m.Media {
		if err := restoreMedia(p, e); err != nil {
			return nil, errors.New(err).
				Component(component).
				Context("media_id", e.ID).
				Build()
		}
	}

	root, err := restoreNode(p, m.Tree)
	if err != nil {
		return nil, err
	}
	for _, c := range root.Children() {
		root.RemoveChild(c)
		if err := p.Root().AppendChild(c); err != nil {
			return nil, err
		}
	}
	for _, ch := range root.Channels() {
		p.Root().SetMedia(ch, root.Media(ch))
	}

	for _, e := range m.External {
		ef := &media.ExternalFileData{Name: e.Name}
		for _, id := range e.Media {
			md, err := p.Media().Get(id)
			if err != nil {
				return nil, err
			}
			ef.Media = append(ef.Media, md)
		}
		for _, id := range e.Providers {
			dp, err := p.Providers().Get(id)
			if err != nil {
				return nil, err
			}
			ef.Providers = append(ef.Providers, dp)
		}
		if err := p.ExternalFiles().Add(ef); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func restoreMedia(p *document.Presentation, e Media) error {
	switch e.Kind {
	case KindAudio:
		format := p.Format()
		if e.Format != nil {
			f, err := e.Format.info()
			if err != nil {
				return err
			}
			format = f
		}
		clips := make([]audio.Clip, 0, len(e.Clips))
		for _, c := range e.Clips {
			dp, err := p.Providers().Get(c.Provider)
			if err != nil {
				return err
			}
			clips = append(clips, audio.Clip{Provider: dp, Begin: c.Begin, End: c.End})
		}
		_, err := audio.Restore(p.Media(), p.Providers(), e.ID, format, clips)
		return err
	case KindRaw:
		providers := make([]media.DataProvider, 0, len(e.Providers))
		for _, id := range e.Providers {
			dp, err := p.Providers().Get(id)
			if err != nil {
				return err
			}
			providers = append(providers, dp)
		}
		return p.Media().Add(media.RestoreRawMediaData(e.ID, e.MimeType, providers...))
	default:
		return errors.Incompatible(component, "unknown media kind %q", e.Kind)
	}
}

func restoreNode(p *document.Presentation, e Node) (*document.Node, error) {
	n := document.NewNode(e.Name)
	for ch, id := range e.Media {
		md, err := p.Media().Get(id)
		if err != nil {
			return nil, err
		}
		n.SetMedia(ch, md)
	}
	for _, ce := range e.Children {
		c, err := restoreNode(p, ce)
		if err != nil {
			return nil, err
		}
		if err := n.AppendChild(c); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Open loads the manifest at path, or creates an empty presentation from
// opts when no manifest exists yet. created reports the latter.
func Open(fs afero.Fs, path string, opts document.Options) (p *document.Presentation, created bool, err error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, false, errors.FileError(err, path, 0)
	}
	if exists {
		p, err = Load(fs, path, opts)
		return p, false, err
	}
	p, err = document.New(fs, opts)
	return p, err == nil, err
}
