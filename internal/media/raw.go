package media

// RawMediaData is an opaque payload (image, text, binary attachment) whose
// bytes live in a fixed set of providers.
type RawMediaData struct {
	id        string
	mimeType  string
	providers []DataProvider
}

var _ MediaData = (*RawMediaData)(nil)

// NewRawMediaData creates an unregistered raw payload.
func NewRawMediaData(mimeType string, providers ...DataProvider) *RawMediaData {
	return &RawMediaData{id: NewID(), mimeType: mimeType, providers: providers}
}

// RestoreRawMediaData recreates a raw payload with a known identity.
func RestoreRawMediaData(id, mimeType string, providers ...DataProvider) *RawMediaData {
	return &RawMediaData{id: id, mimeType: mimeType, providers: providers}
}

func (r *RawMediaData) ID() string       { return r.id }
func (r *RawMediaData) MimeType() string { return r.mimeType }

// UsedDataProviders returns the backing providers.
func (r *RawMediaData) UsedDataProviders() []DataProvider {
	return append([]DataProvider(nil), r.providers...)
}
