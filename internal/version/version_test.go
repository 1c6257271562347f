package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	switch {
	case v == "":
		t.Error("version should not be empty")
	case c == "":
		t.Error("commit should not be empty")
	case d == "":
		t.Error("date should not be empty")
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String() should contain %q, got %q", part, s)
		}
	}
}

func TestGetters(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should not return empty string")
	}
	if GetCommit() == "" {
		t.Error("GetCommit should not return empty string")
	}
	if GetDate() == "" {
		t.Error("GetDate should not return empty string")
	}
}
