package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestSwaggerDocRegistered(t *testing.T) {
	raw, err := swag.ReadDoc()
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	info, _ := doc["info"].(map[string]any)
	if info["title"] != "chartd API" {
		t.Fatalf("title=%v", info["title"])
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/routes"]; !ok {
		t.Fatalf("missing /routes path: %v", paths)
	}
}
