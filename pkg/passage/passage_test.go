package passage

import "testing"

func validPassage() Passage {
	return Passage{
		AudioRef: "track.flac",
		Start:    0,
		FadeIn:   1000,
		FadeOut:  9000,
		LeadIn:   2000,
		LeadOut:  8000,
		End:      10000,
	}
}

func TestValidatePasses(t *testing.T) {
	if err := validPassage().Validate(); err != nil {
		t.Fatalf("expected valid passage, got %v", err)
	}
}

func TestZeroLengthRejected(t *testing.T) {
	p := validPassage()
	p.End = p.Start
	if err := p.Validate(); err == nil {
		t.Fatal("expected zero-length passage to be rejected")
	}
}

func TestInvertedFadeRejected(t *testing.T) {
	p := validPassage()
	p.FadeIn, p.FadeOut = p.FadeOut, p.FadeIn
	if err := p.Validate(); err == nil {
		t.Fatal("expected inverted fade order to be rejected")
	}
}

func TestInvertedLeadRejected(t *testing.T) {
	p := validPassage()
	p.LeadIn, p.LeadOut = p.LeadOut, p.LeadIn
	if err := p.Validate(); err == nil {
		t.Fatal("expected inverted lead order to be rejected")
	}
}

func TestEqualPointsPermitted(t *testing.T) {
	p := validPassage()
	p.LeadIn = p.LeadOut // zero-duration lead region is legal
	if err := p.Validate(); err != nil {
		t.Fatalf("equal lead points should be valid, got %v", err)
	}
}

func TestClampOutOfRange(t *testing.T) {
	p := validPassage()
	p.FadeIn = -500
	p.LeadOut = 99999
	corrected := p.ClampAndCorrect()
	if !corrected {
		t.Fatal("expected correction to be applied")
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("clamped passage should validate, got %v", err)
	}
}

func TestClampCollapsesInvertedPair(t *testing.T) {
	p := validPassage()
	p.FadeIn, p.FadeOut = 9000, 1000 // inverted
	p.ClampAndCorrect()
	if p.FadeIn != p.FadeOut {
		t.Fatalf("inverted pair should collapse to midpoint, got %d/%d", p.FadeIn, p.FadeOut)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("post-clamp passage should validate, got %v", err)
	}
}

func TestOverridePrecedence(t *testing.T) {
	p := validPassage()
	override := int64(500)
	entry := QueueEntry{
		ID:      "e1",
		Passage: p,
		Overrides: &Overrides{
			FadeIn: &override,
		},
	}
	eff := entry.Effective()
	if eff.FadeIn != 500 {
		t.Errorf("override should take precedence, got FadeIn=%d", eff.FadeIn)
	}
	if eff.FadeOut != p.FadeOut {
		t.Errorf("non-overridden point should pass through unchanged, got %d", eff.FadeOut)
	}
}

func TestLeadAndFadeSpans(t *testing.T) {
	p := validPassage()
	if got := p.LeadOutSpan(); got != p.End-p.LeadOut {
		t.Errorf("LeadOutSpan = %d, want %d", got, p.End-p.LeadOut)
	}
	if got := p.LeadInSpan(); got != p.LeadIn-p.Start {
		t.Errorf("LeadInSpan = %d, want %d", got, p.LeadIn-p.Start)
	}
}
