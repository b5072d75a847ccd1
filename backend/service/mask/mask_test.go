package mask

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"maskbrowser/backend/domain"
)

var testCatalog = domain.MaskCatalog{
	"msword": {Title: "Microsoft Word", OrgName: "Microsoft Office", OrgDomain: "https://microsoft.com", Icon64: "a.png", Icon128: "b.png"},
	"chrome": {Title: "Google Chrome", OrgName: "Google", OrgDomain: "https://google.com", Icon64: "c.png", Icon128: "missing.png"},
}

func assetRoot(t *testing.T, icons ...string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, IconDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range icons {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestApplier() (*Applier, *[]string) {
	var calls []string
	a := NewApplier("1.0.0a", slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.setAppID = func(id string) error {
		calls = append(calls, id)
		return nil
	}
	return a, &calls
}

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"msword", "MSWord", " MSWORD "} {
		rec, err := Lookup(testCatalog, name)
		if err != nil {
			t.Fatalf("Lookup(%q) error = %v", name, err)
		}
		if rec != testCatalog["msword"] {
			t.Errorf("Lookup(%q) = %+v", name, rec)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, name := range []string{"", "notepad"} {
		if _, err := Lookup(testCatalog, name); !errors.Is(err, domain.ErrMaskNotFound) {
			t.Errorf("Lookup(%q) error = %v, want ErrMaskNotFound", name, err)
		}
	}
}

func TestApplyMsword(t *testing.T) {
	a, calls := newTestApplier()
	root := assetRoot(t, "a.png", "b.png")

	id, err := a.Apply(testCatalog, "msword", "", root)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if id.Title != "Microsoft Word" {
		t.Errorf("Title = %q, want Microsoft Word", id.Title)
	}
	if id.AppID != "microsoft office.microsoft word.maskbrowser.1.0.0a" {
		t.Errorf("AppID = %q", id.AppID)
	}
	if id.Icon64 != filepath.Join(root, IconDir, "a.png") {
		t.Errorf("Icon64 = %q", id.Icon64)
	}
	if len(*calls) != 1 {
		t.Errorf("setAppID calls = %d, want 1", len(*calls))
	}
	if cur, ok := a.Current(); !ok || cur != id {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestApplyTitleOverride(t *testing.T) {
	a, _ := newTestApplier()
	id, err := a.Apply(testCatalog, "MSWORD", "Quarterly Report", assetRoot(t, "a.png", "b.png"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if id.Title != "Quarterly Report" || id.OrgName != "Microsoft Office" || id.Mask != "msword" {
		t.Errorf("Apply() = %+v", id)
	}
}

func TestApplyFailureLeavesIdentityUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		mask    string
		icons   []string
		wantErr error
	}{
		{"unknown mask", "notepad", []string{"a.png", "b.png"}, domain.ErrMaskNotFound},
		{"missing small icon", "msword", []string{"b.png"}, domain.ErrAssetMissing},
		{"missing large icon", "chrome", []string{"c.png"}, domain.ErrAssetMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, calls := newTestApplier()
			_, err := a.Apply(testCatalog, tt.mask, "", assetRoot(t, tt.icons...))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
			if _, ok := a.Current(); ok {
				t.Error("identity applied after failure")
			}
			if len(*calls) != 0 {
				t.Errorf("setAppID called %d times after failure", len(*calls))
			}
		})
	}
}

func TestApplyOnlyOnce(t *testing.T) {
	a, calls := newTestApplier()
	root := assetRoot(t, "a.png", "b.png")
	first, err := a.Apply(testCatalog, "msword", "", root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Apply(testCatalog, "msword", "Other", root); err == nil {
		t.Fatal("second Apply() should fail")
	}
	if cur, _ := a.Current(); cur != first {
		t.Errorf("Current() changed to %+v", cur)
	}
	if len(*calls) != 1 {
		t.Errorf("setAppID calls = %d, want 1", len(*calls))
	}
}

func TestValidateAssetsRejectsTraversal(t *testing.T) {
	rec := domain.MaskRecord{Icon64: "../../etc/passwd", Icon128: "b.png"}
	if _, _, err := ValidateAssets(rec, assetRoot(t, "b.png")); !errors.Is(err, domain.ErrAssetMissing) {
		t.Errorf("ValidateAssets() error = %v, want ErrAssetMissing", err)
	}
}
