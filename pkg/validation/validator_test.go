package validation

import (
	"strings"
	"testing"

	"github.com/labforge/synthrig/pkg/pipeline"
	"github.com/labforge/synthrig/pkg/rig"
)

func validGraphDoc() *rig.Document {
	return &rig.Document{
		Nodes: []rig.NodeDocument{
			{ID: "reactor", Class: "reactor", MaxVolume: 100},
			{ID: "valve1", Class: "valve"},
			{ID: "pump1", Class: "pump", MaxVolume: 25},
		},
		Links: []rig.LinkDocument{
			{Source: "valve1", Target: "reactor", Port: rig.PortPair{From: "1", To: "0"}},
			{Source: "valve1", Target: "pump1", Port: rig.PortPair{From: "-1", To: "0"}},
		},
	}
}

func TestValidateGraphDocument(t *testing.T) {
	if err := ValidateGraphDocument(validGraphDoc()); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestValidateGraphDocumentNil(t *testing.T) {
	if err := ValidateGraphDocument(nil); err == nil {
		t.Fatal("nil document must be rejected")
	}
}

func TestValidateGraphDocumentNoNodes(t *testing.T) {
	err := ValidateGraphDocument(&rig.Document{})
	if err == nil {
		t.Fatal("empty document must be rejected")
	}
	if !strings.Contains(err.Error(), "Nodes") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestValidateGraphDocumentUnknownClass(t *testing.T) {
	doc := validGraphDoc()
	doc.Nodes[0].Class = "centrifuge"
	err := ValidateGraphDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "centrifuge") {
		t.Fatalf("unknown class must be rejected by name, got %v", err)
	}
}

func TestValidateGraphDocumentDuplicateID(t *testing.T) {
	doc := validGraphDoc()
	doc.Nodes = append(doc.Nodes, rig.NodeDocument{ID: "reactor", Class: "reactor"})
	err := ValidateGraphDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate id must be rejected, got %v", err)
	}
}

func TestValidateGraphDocumentDanglingLink(t *testing.T) {
	doc := validGraphDoc()
	doc.Links = append(doc.Links, rig.LinkDocument{Source: "valve1", Target: "ghost"})
	err := ValidateGraphDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("dangling link must be rejected, got %v", err)
	}
}

func TestValidateGraphDocumentBadPort(t *testing.T) {
	doc := validGraphDoc()
	doc.Links[0].Port = rig.PortPair{From: "1", To: "9"}
	err := ValidateGraphDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "port") {
		t.Fatalf("illegal port must be rejected, got %v", err)
	}
}

func TestValidateGraphDocumentNegativeVolume(t *testing.T) {
	doc := validGraphDoc()
	doc.Nodes[0].MaxVolume = -1
	if err := ValidateGraphDocument(doc); err == nil {
		t.Fatal("negative volume must be rejected")
	}
}

func validProcedureDoc() *pipeline.Document {
	return &pipeline.Document{
		Hardware: []pipeline.ComponentDocument{
			{ID: "main_reactor", Class: "reactor"},
		},
		Reagents: []pipeline.ReagentDocument{
			{ID: "hcl", CleaningSolvent: "water"},
		},
		Steps: []pipeline.StepDocument{
			{Type: "add"},
			{Type: "wash_solid"},
		},
	}
}

func TestValidateProcedureDocument(t *testing.T) {
	if err := ValidateProcedureDocument(validProcedureDoc()); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestValidateProcedureDocumentNil(t *testing.T) {
	if err := ValidateProcedureDocument(nil); err == nil {
		t.Fatal("nil document must be rejected")
	}
}

func TestValidateProcedureDocumentNoSteps(t *testing.T) {
	doc := validProcedureDoc()
	doc.Steps = nil
	if err := ValidateProcedureDocument(doc); err == nil {
		t.Fatal("stepless document must be rejected")
	}
}

func TestValidateProcedureDocumentUnknownStep(t *testing.T) {
	doc := validProcedureDoc()
	doc.Steps = append(doc.Steps, pipeline.StepDocument{Type: "teleport"})
	err := ValidateProcedureDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "teleport") {
		t.Fatalf("unknown step type must be rejected by name, got %v", err)
	}
}

func TestValidateProcedureDocumentBadClass(t *testing.T) {
	doc := validProcedureDoc()
	doc.Hardware[0].Class = "teapot"
	if err := ValidateProcedureDocument(doc); err == nil {
		t.Fatal("unknown hardware class must be rejected")
	}
}

func TestValidateProcedureDocumentDuplicateReagent(t *testing.T) {
	doc := validProcedureDoc()
	doc.Reagents = append(doc.Reagents, pipeline.ReagentDocument{ID: "hcl"})
	err := ValidateProcedureDocument(doc)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate reagent must be rejected, got %v", err)
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"reactor", "valve_1", "flask.ether", "pump-2"} {
		if err := ValidateID(id); err != nil {
			t.Errorf("id %q rejected: %v", id, err)
		}
	}
	for _, id := range []string{"", "bad id", "flask/ether", strings.Repeat("x", 65)} {
		if err := ValidateID(id); err == nil {
			t.Errorf("id %q should have been rejected", id)
		}
	}
}
