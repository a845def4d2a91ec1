package model

import "testing"

func TestComputeFingerprint_Deterministic(t *testing.T) {
	p := JobPosting{
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Description: "Build services in Go.",
	}

	a := ComputeFingerprint(p)
	b := ComputeFingerprint(p)
	if a != b {
		t.Errorf("same posting hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	a := ComputeFingerprint(JobPosting{
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Description: "Build services in Go.",
	})
	b := ComputeFingerprint(JobPosting{
		Title:       "  senior   BACKEND engineer ",
		Company:     "ACME",
		Description: "Build\nservices\t in Go.",
	})

	if a != b {
		t.Error("normalization should make formatting variants hash identically")
	}
}

func TestComputeFingerprint_DistinctContentDiffers(t *testing.T) {
	a := ComputeFingerprint(JobPosting{Title: "Backend Engineer", Company: "Acme"})
	b := ComputeFingerprint(JobPosting{Title: "Frontend Engineer", Company: "Acme"})

	if a == b {
		t.Error("different postings should not share a fingerprint")
	}
}

func TestComputeFingerprint_FieldBoundaries(t *testing.T) {
	// Content shifted across the title/company boundary must not collide.
	a := ComputeFingerprint(JobPosting{Title: "Engineer Acme", Company: "Corp"})
	b := ComputeFingerprint(JobPosting{Title: "Engineer", Company: "Acme Corp"})

	if a == b {
		t.Error("field boundary should be part of the hash input")
	}
}

func TestFingerprintShort(t *testing.T) {
	fp := ComputeFingerprint(JobPosting{Title: "x"})
	if got := fp.Short(); len(got) != 12 {
		t.Errorf("Short() length = %d, want 12", len(got))
	}
	if short := Fingerprint("abc"); short.Short() != "abc" {
		t.Errorf("Short() on short fingerprint = %q, want unchanged", short.Short())
	}
}
