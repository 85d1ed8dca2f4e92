package config

// Config holds tarc's settings. Every field can come from a flag, from a
// TARC_ environment variable (dots become underscores, so extract.dest is
// TARC_EXTRACT_DEST) or from the TOML config file.
type Config struct {
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`

	Extract Extract `mapstructure:"extract"`
	Inspect Inspect `mapstructure:"inspect"`
	Create  Create  `mapstructure:"create"`
}

type Extract struct {
	// Dest is the directory entries are written below
	Dest string `mapstructure:"dest"`

	// Bundle reads the input as base64 text rather than a raw tar stream
	Bundle      bool   `mapstructure:"bundle"`
	Compression string `mapstructure:"compression"`

	Strict bool `mapstructure:"strict"`

	// SkipIfExists names a file below Dest; if it is there, a bundle is
	// taken as already installed
	SkipIfExists string `mapstructure:"skip_if_exists"`
	Manifest     string `mapstructure:"manifest"`
}

type Inspect struct {
	CBOR bool `mapstructure:"cbor"`
}

type Create struct {
	Compression string `mapstructure:"compression"`
	Bundle      bool   `mapstructure:"bundle"`
}
