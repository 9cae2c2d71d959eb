package model

import (
	"encoding/json"
	"testing"
)

func TestSeverityString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", int(tt.severity), got, tt.want)
		}
	}
}

func TestSeverityJSON(t *testing.T) {
	t.Parallel()

	t.Run("should encode as the string form", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(Signal{Type: "http_error", Severity: SeverityCritical, Detail: "503"})
		if err != nil {
			t.Fatal(err)
		}
		want := `{"type":"http_error","severity":"critical","detail":"503"}`
		if string(data) != want {
			t.Errorf("Marshal() = %s, want %s", data, want)
		}
	})

	t.Run("should decode the string form", func(t *testing.T) {
		t.Parallel()

		var signal Signal
		if err := json.Unmarshal([]byte(`{"type":"redirect","severity":"warning"}`), &signal); err != nil {
			t.Fatal(err)
		}
		if signal.Severity != SeverityWarning {
			t.Errorf("Severity = %v, want warning", signal.Severity)
		}
	})

	t.Run("should reject unknown severities", func(t *testing.T) {
		t.Parallel()

		var severity Severity
		if err := json.Unmarshal([]byte(`"catastrophic"`), &severity); err == nil {
			t.Error("Unmarshal() accepted an unknown severity")
		}
	})
}
