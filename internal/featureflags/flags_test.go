package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	t.Setenv("FLAG_ADMISSION_LOCK", "Yes")
	if !Enabled(AdmissionLock) {
		t.Fatalf("expected admission_lock enabled")
	}
	t.Setenv("FLAG_ADMISSION_LOCK", "off")
	if Enabled(AdmissionLock) {
		t.Fatalf("expected admission_lock disabled")
	}
}

func TestEnabledOrDefault(t *testing.T) {
	if !EnabledOr(StaleWorker, true) {
		t.Fatalf("expected default true for unset flag")
	}
	t.Setenv("FLAG_STALE_WORKER", "0")
	if EnabledOr(StaleWorker, true) {
		t.Fatalf("expected explicit 0 to disable")
	}
}
