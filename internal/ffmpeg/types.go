package ffmpeg

// Progress is one -progress block reported by ffmpeg.
type Progress struct {
	Frame int
	FPS   float64
	// OutTime is the encoded position in seconds.
	OutTime float64
	Time    string
	Speed   string
	// Done is set on the final block.
	Done bool
}

// ProgressFunc is called once per ffmpeg progress block.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultPreset     = "ultrafast"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
}

// TrimOptions cuts [Start, Start+Duration] out of Input. Audio is dropped.
type TrimOptions struct {
	Input      string
	Output     string
	Start      float64
	Duration   float64
	VideoCodec string
	Preset     string
}

// ComposeOptions describes the final layered render.
type ComposeOptions struct {
	Background string
	// Overlay is a canvas-sized transparent image shown during [0, OverlayEnd].
	Overlay    string
	OverlayEnd float64
	// Subtitles is an ASS file burned in over the whole video.
	Subtitles string
	FontsDir  string
	Audio     string
	Output    string
	Duration  float64

	Width      int
	Height     int
	FPS        int
	VideoCodec string
	AudioCodec string
	Preset     string

	// ProgressFunc, when set, receives every progress block of the render.
	ProgressFunc ProgressFunc
}
