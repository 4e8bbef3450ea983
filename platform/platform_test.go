package platform

import (
	"errors"
	"testing"
)

func TestResolveMatchesKnownPlatforms(t *testing.T) {
	cases := []struct {
		os   string
		want Tag
	}{
		{"Mac OS X", Mac},
		{"mac os x", Mac},
		{"MACOS", Mac},
		{"Windows 10", Windows},
		{"windows server 2022", Windows},
		{"Linux", Linux},
		{"gnu/linux", Linux},
	}
	for _, tc := range cases {
		exe, err := Resolve(tc.os)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", tc.os, err)
		}
		if exe.Platform != tc.want {
			t.Fatalf("Resolve(%q) platform = %q, want %q", tc.os, exe.Platform, tc.want)
		}
		if exe.Name != DefaultNames[tc.want] {
			t.Fatalf("Resolve(%q) name = %q, want %q", tc.os, exe.Name, DefaultNames[tc.want])
		}
	}
}

func TestResolvePriorityMacBeforeWin(t *testing.T) {
	// "darwin" contains "win"; callers must go through HostOSName.
	exe, err := Resolve("darwin")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if exe.Platform != Windows {
		t.Fatalf("unexpected platform for raw darwin: %q", exe.Platform)
	}
	exe, err = Resolve("machine running win")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if exe.Platform != Mac {
		t.Fatalf("expected mac to win priority, got %q", exe.Platform)
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, os := range []string{"", "freebsd", "plan9", "solaris"} {
		_, err := Resolve(os)
		if !errors.Is(err, ErrUnsupportedPlatform) {
			t.Fatalf("Resolve(%q) error = %v, want ErrUnsupportedPlatform", os, err)
		}
		var upe *UnsupportedPlatformError
		if !errors.As(err, &upe) {
			t.Fatalf("expected UnsupportedPlatformError, got %T", err)
		}
		if upe.OS != os {
			t.Fatalf("error carries %q, want %q", upe.OS, os)
		}
	}
}

func TestResolverCustomNames(t *testing.T) {
	r := Resolver{Names: map[Tag]string{Linux: "resize-linux"}}
	exe, err := r.Resolve("linux")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if exe.Name != "resize-linux" {
		t.Fatalf("unexpected name %q", exe.Name)
	}
	exe, err = r.Resolve("windows")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if exe.Name != DefaultNames[Windows] {
		t.Fatalf("expected default windows name, got %q", exe.Name)
	}
}

func TestHostOSNameResolves(t *testing.T) {
	for goos, want := range map[string]Tag{"darwin": Mac, "windows": Windows, "linux": Linux} {
		exe, err := Resolve(osName(goos))
		if err != nil {
			t.Fatalf("Resolve(osName(%q)) returned error: %v", goos, err)
		}
		if exe.Platform != want {
			t.Fatalf("osName(%q) resolved to %q, want %q", goos, exe.Platform, want)
		}
	}
	if _, err := Resolve(osName("freebsd")); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected freebsd to be unsupported, got %v", err)
	}
}
