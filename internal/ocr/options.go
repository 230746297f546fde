package ocr

// Options configures a recognition engine.
type Options struct {
	Allowlist  string
	Language   string
	Tessdata   string
	SingleLine bool
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions reads a single line of coordinate glyphs.
func DefaultOptions() Options {
	return Options{
		Allowlist:  Allowlist,
		Language:   "complexeng",
		Tessdata:   "./tessdata",
		SingleLine: true,
	}
}

// Apply returns DefaultOptions with opts applied in order.
func Apply(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAllowlist restricts recognition to chars. Empty disables the restriction.
func WithAllowlist(chars string) Option {
	return func(o *Options) { o.Allowlist = chars }
}

// WithLanguage selects the trained data set.
func WithLanguage(lang string) Option {
	return func(o *Options) { o.Language = lang }
}

// WithTessdata sets the directory holding trained data. Empty uses the
// engine's built-in search path.
func WithTessdata(dir string) Option {
	return func(o *Options) { o.Tessdata = dir }
}

// WithSingleLine toggles single text line page segmentation.
func WithSingleLine(on bool) Option {
	return func(o *Options) { o.SingleLine = on }
}
