package sysproxy

import (
	"os/user"
	"sort"
	"testing"
)

func TestResolveTargetUser(t *testing.T) {
	t.Run("SUDO_USER priority", func(t *testing.T) {
		t.Setenv("SUDO_USER", "testuser")
		t.Setenv("PKEXEC_UID", "1000")
		if got := resolveTargetUser(); got != "testuser" {
			t.Errorf("resolveTargetUser() = %v, want %v", got, "testuser")
		}
	})

	t.Run("PKEXEC_UID fallback", func(t *testing.T) {
		t.Setenv("SUDO_USER", "")
		t.Setenv("PKEXEC_UID", "0")
		if got := resolveTargetUser(); got != "root" {
			t.Errorf("resolveTargetUser() = %v, want %v", got, "root")
		}
	})
}

func TestBuildUserEnv(t *testing.T) {
	u, err := user.Current()
	if err != nil {
		t.Skip("skipping test: cannot get current user")
	}

	env := buildUserEnv(u.Username)
	if env["USER"] != u.Username {
		t.Errorf("env[USER] = %v, want %v", env["USER"], u.Username)
	}
	if env["HOME"] != u.HomeDir {
		t.Errorf("env[HOME] = %v, want %v", env["HOME"], u.HomeDir)
	}
	if len(buildUserEnv("")) != 0 {
		t.Error("buildUserEnv(\"\") should be empty")
	}
}

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "B=2"}
	if got := mergeEnv(base, nil); len(got) != 2 {
		t.Errorf("mergeEnv(nil) = %v", got)
	}
	got := mergeEnv(base, map[string]string{"B": "3", "C": "4"})
	sort.Strings(got)
	want := []string{"A=1", "B=3", "C=4"}
	if len(got) != len(want) {
		t.Fatalf("mergeEnv() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mergeEnv()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
