package templates

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedNotifications(t *testing.T) {
	reg := Get()

	for _, id := range []string{
		"notifications/alert_subject",
		"notifications/alert_body",
		"notifications/price_failure_subject",
		"notifications/price_failure_body",
		"notifications/service_stopped_subject",
		"notifications/service_stopped_body",
		"notifications/fatal_subject",
		"notifications/fatal_body",
	} {
		if _, err := reg.GetTemplate(id); err != nil {
			t.Fatalf("embedded template %s: %v", id, err)
		}
	}

	rendered, err := reg.Render("notifications/price_failure_subject", map[string]string{"ISIN": "DE000BAY0017"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if rendered != "Stock Alert: Failed to retrieve price for DE000BAY0017" {
		t.Fatalf("unexpected render result: %q", rendered)
	}
}

func TestRegistryOverridesFromDisk(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "notifications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	tplPath := filepath.Join(dir, "alert_subject.tmpl")
	if err := os.WriteFile(tplPath, []byte("[stocks] {{.ISIN}}\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	reg, err := NewRegistry(base)
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}

	rendered, err := reg.Render("notifications/alert_subject", map[string]string{"ISIN": "US0378331005"})
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if rendered != "[stocks] US0378331005" {
		t.Fatalf("unexpected render result: %q", rendered)
	}

	// templates not overridden keep their embedded content
	rendered, err = reg.Render("notifications/price_failure_subject", map[string]string{"ISIN": "US0378331005"})
	if err != nil {
		t.Fatalf("render embedded template: %v", err)
	}
	if rendered != "Stock Alert: Failed to retrieve price for US0378331005" {
		t.Fatalf("unexpected render result: %q", rendered)
	}
}

func TestRegistryLazyLoad(t *testing.T) {
	base := t.TempDir()
	reg, err := NewRegistry(base)
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}

	path := filepath.Join(base, "notifications", "digest.tmpl")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dirs: %v", err)
	}

	if err := os.WriteFile(path, []byte("Watching {{.Count}} ISINs"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	rendered, err := reg.Render("notifications/digest", map[string]int{"Count": 3})
	if err != nil {
		t.Fatalf("render lazily loaded template: %v", err)
	}

	if rendered != "Watching 3 ISINs" {
		t.Fatalf("unexpected render output: %s", rendered)
	}
}

func TestRegistryMissingTemplate(t *testing.T) {
	if _, err := Get().Render("notifications/nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRegistryParseError(t *testing.T) {
	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "broken.tmpl"), []byte("{{.Oops"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	if _, err := NewRegistry(base); err == nil {
		t.Fatal("expected parse error")
	}
}
