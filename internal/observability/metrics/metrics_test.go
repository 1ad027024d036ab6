package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("guard", "role"),
		attribute.String("user_email", "alice@example.com"),
		attribute.String("limit_key", "todos.create"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "guard" && attrs[1].Key != "guard" {
		t.Fatalf("expected guard to be retained")
	}
	if attrs[0].Key != "limit_key" && attrs[1].Key != "limit_key" {
		t.Fatalf("expected limit_key to be retained")
	}
}
