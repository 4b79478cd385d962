package observability

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "quorum.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read alert rules: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("parse alert rules: %v", err)
	}
	if len(spec.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}
	for _, group := range spec.Groups {
		if group.Name == "" {
			t.Fatal("alert group missing name")
		}
		for _, rule := range group.Rules {
			if rule.Alert == "" || rule.Expr == "" {
				t.Fatalf("incomplete rule in group %s: %+v", group.Name, rule)
			}
			if rule.Labels["severity"] == "" {
				t.Fatalf("rule %s missing severity label", rule.Alert)
			}
			if rule.Annotations["summary"] == "" {
				t.Fatalf("rule %s missing summary annotation", rule.Alert)
			}
		}
	}
}
