package config

import (
	"os"
	"testing"
)

func TestGetStringFallsBackToDefault(t *testing.T) {
	src := New()
	if got := src.GetString("nope", "fallback"); got != "fallback" {
		t.Errorf("GetString = %q, want fallback", got)
	}
}

func TestOverrideMapTakesPrecedenceOverEnv(t *testing.T) {
	t.Setenv("AUDIOENGINE_HEADROOM", "9999")
	src := NewFromMap(map[string]string{"headroom": "123"})
	if got := src.GetInt(KeyHeadroom, DefaultHeadroom); got != 123 {
		t.Errorf("GetInt = %d, want 123", got)
	}
}

func TestEnvVarIsReadWhenNoOverride(t *testing.T) {
	t.Setenv("AUDIOENGINE_WORKING_SAMPLE_RATE", "48000")
	src := New()
	if got := src.GetInt(KeyWorkingSampleRate, DefaultWorkingSampleRate); got != 48000 {
		t.Errorf("GetInt = %d, want 48000", got)
	}
}

func TestUnparsableValueFallsBackToDefault(t *testing.T) {
	src := NewFromMap(map[string]string{"headroom": "not-a-number"})
	if got := src.GetInt(KeyHeadroom, DefaultHeadroom); got != DefaultHeadroom {
		t.Errorf("GetInt = %d, want default %d", got, DefaultHeadroom)
	}
}

func TestLoadEngineUsesDocumentedDefaults(t *testing.T) {
	os.Clearenv()
	eng := LoadEngine(New())

	if eng.WorkingSampleRate != DefaultWorkingSampleRate {
		t.Errorf("WorkingSampleRate = %d, want %d", eng.WorkingSampleRate, DefaultWorkingSampleRate)
	}
	if eng.Headroom != DefaultHeadroom {
		t.Errorf("Headroom = %d, want %d", eng.Headroom, DefaultHeadroom)
	}
	if eng.Headroom+eng.ResumeHysteresis != 48510 {
		t.Errorf("headroom+resume_hysteresis = %d, want 48510", eng.Headroom+eng.ResumeHysteresis)
	}
	if eng.ResumeFadeCurve != "cosine" {
		t.Errorf("ResumeFadeCurve = %q, want cosine", eng.ResumeFadeCurve)
	}
}

func TestLoadEngineHonorsOverrides(t *testing.T) {
	src := NewFromMap(map[string]string{
		KeyHeadroom:          "1000",
		KeyResumeHysteresis:  "2000",
		KeyGlobalFadeCurves:  "linear/linear",
		KeyGlobalCrossfadeSec: "3.5",
	})
	eng := LoadEngine(src)
	if eng.Headroom != 1000 || eng.ResumeHysteresis != 2000 {
		t.Fatalf("overrides not applied: %+v", eng)
	}
	if eng.GlobalFadeCurves != "linear/linear" {
		t.Errorf("GlobalFadeCurves = %q", eng.GlobalFadeCurves)
	}
	if eng.GlobalCrossfadeSec != 3.5 {
		t.Errorf("GlobalCrossfadeSec = %v", eng.GlobalCrossfadeSec)
	}
}
