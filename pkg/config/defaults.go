package config

// Key names match spec.md §6's configuration collaborator table verbatim,
// so the documented defaults below are the values an uninitialized Source
// resolves to.
const (
	KeyWorkingSampleRate  = "working_sample_rate"
	KeyOutputRingFrames   = "output_ring_frames"
	KeyPlayoutRingFrames  = "playout_ring_frames"
	KeyHeadroom           = "headroom"
	KeyResumeHysteresis   = "resume_hysteresis"
	KeyMixerMinStartLevel = "mixer_min_start_level"
	KeyMaxDecodeStreams   = "max_decode_streams"
	KeyDecodeWorkPeriodMs = "decode_work_period_ms"
	KeyDecodeChunkSamples = "decode_chunk_samples"
	KeyMixerCheckInterval = "mixer_check_interval_ms"
	KeyMixerBatchLow      = "mixer_batch_low"
	KeyMixerBatchOptimal  = "mixer_batch_optimal"
	KeyAudioBufferFrames  = "audio_buffer_frames"
	KeyPauseDecayFactor   = "pause_decay_factor"
	KeyPauseDecayFloor    = "pause_decay_floor"
	KeyResumeFadeMs       = "resume_fade_ms"
	KeyResumeFadeCurve    = "resume_fade_curve"
	KeyGlobalCrossfadeSec = "global_crossfade_seconds"
	KeyGlobalFadeCurves   = "global_fade_curve_pair"
)

// Default values, spec.md §6.
const (
	DefaultWorkingSampleRate  = 44100
	DefaultOutputRingFrames   = 88200
	DefaultPlayoutRingFrames  = 661941
	DefaultHeadroom           = 4410
	DefaultResumeHysteresis   = 44100
	DefaultMixerMinStartLevel = 22050
	DefaultMaxDecodeStreams   = 12
	DefaultDecodeWorkPeriodMs = 5000
	DefaultDecodeChunkSamples = 25000
	DefaultMixerCheckInterval = 10
	DefaultMixerBatchLow      = 512
	DefaultMixerBatchOptimal  = 256
	DefaultAudioBufferFrames  = 2208
	DefaultPauseDecayFactor   = 0.96875
	DefaultPauseDecayFloor    = 1.778e-4
	DefaultResumeFadeMs       = 500
	DefaultResumeFadeCurve    = "cosine"
	DefaultGlobalCrossfadeSec = 2.0
	DefaultGlobalFadeCurves   = "cosine/cosine"
)

// Engine bundles the resolved numeric/string settings the playback engine
// needs at startup, reading each through Source once rather than scattering
// GetInt/GetString calls with inline defaults across the engine package.
type Engine struct {
	WorkingSampleRate  int
	OutputRingFrames   int
	PlayoutRingFrames  int
	Headroom           uint64
	ResumeHysteresis   uint64
	MixerMinStartLevel uint64
	MaxDecodeStreams   int
	DecodeWorkPeriodMs int
	DecodeChunkSamples int
	MixerCheckInterval int
	MixerBatchLow      int
	MixerBatchOptimal  int
	AudioBufferFrames  int
	PauseDecayFactor   float64
	PauseDecayFloor    float64
	ResumeFadeMs       int
	ResumeFadeCurve    string
	GlobalCrossfadeSec float64
	GlobalFadeCurves   string
}

// LoadEngine resolves every engine setting from src, falling back to the
// spec-documented defaults for keys it does not provide.
func LoadEngine(src *Source) Engine {
	return Engine{
		WorkingSampleRate:  src.GetInt(KeyWorkingSampleRate, DefaultWorkingSampleRate),
		OutputRingFrames:   src.GetInt(KeyOutputRingFrames, DefaultOutputRingFrames),
		PlayoutRingFrames:  src.GetInt(KeyPlayoutRingFrames, DefaultPlayoutRingFrames),
		Headroom:           uint64(src.GetInt64(KeyHeadroom, DefaultHeadroom)),
		ResumeHysteresis:   uint64(src.GetInt64(KeyResumeHysteresis, DefaultResumeHysteresis)),
		MixerMinStartLevel: uint64(src.GetInt64(KeyMixerMinStartLevel, DefaultMixerMinStartLevel)),
		MaxDecodeStreams:   src.GetInt(KeyMaxDecodeStreams, DefaultMaxDecodeStreams),
		DecodeWorkPeriodMs: src.GetInt(KeyDecodeWorkPeriodMs, DefaultDecodeWorkPeriodMs),
		DecodeChunkSamples: src.GetInt(KeyDecodeChunkSamples, DefaultDecodeChunkSamples),
		MixerCheckInterval: src.GetInt(KeyMixerCheckInterval, DefaultMixerCheckInterval),
		MixerBatchLow:      src.GetInt(KeyMixerBatchLow, DefaultMixerBatchLow),
		MixerBatchOptimal:  src.GetInt(KeyMixerBatchOptimal, DefaultMixerBatchOptimal),
		AudioBufferFrames:  src.GetInt(KeyAudioBufferFrames, DefaultAudioBufferFrames),
		PauseDecayFactor:   src.GetFloat(KeyPauseDecayFactor, DefaultPauseDecayFactor),
		PauseDecayFloor:    src.GetFloat(KeyPauseDecayFloor, DefaultPauseDecayFloor),
		ResumeFadeMs:       src.GetInt(KeyResumeFadeMs, DefaultResumeFadeMs),
		ResumeFadeCurve:    src.GetString(KeyResumeFadeCurve, DefaultResumeFadeCurve),
		GlobalCrossfadeSec: src.GetFloat(KeyGlobalCrossfadeSec, DefaultGlobalCrossfadeSec),
		GlobalFadeCurves:   src.GetString(KeyGlobalFadeCurves, DefaultGlobalFadeCurves),
	}
}
