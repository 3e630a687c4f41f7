package tools_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/petasbytes/biome-agent/internal/biome/biometest"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/tools"
)

func seedThree(e *env) {
	pdc := biometest.Source("1", "Proteomics Data Commons", "PDC", "Proteomics data", "https://pdc.cancer.gov")
	pdc["logo"] = "https://pdc.cancer.gov/logo.png"
	e.srv.SetSources(
		pdc,
		biometest.Source("2", "UniProt", "UP", "Protein sequences", "https://www.uniprot.org"),
		biometest.Source("3", "cBioPortal", "CBP", "Cancer genomics", "https://www.cbioportal.org"),
	)
}

func displayedNames(t *testing.T, q *notify.Queue) []string {
	t.Helper()
	ns := q.Drain()
	if len(ns) != 1 {
		t.Fatalf("expected one notification, got %d", len(ns))
	}
	if ns[0].Topic != notify.TopicDataSources || ns[0].Channel != notify.ChannelIOPub {
		t.Fatalf("unexpected channel/topic %s/%s", ns[0].Channel, ns[0].Topic)
	}
	recs, ok := ns[0].Payload["data_sources"].([]tools.SourceRecord)
	if !ok {
		t.Fatalf("unexpected payload type %T", ns[0].Payload["data_sources"])
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := append(append([]string(nil), in[:i]...), in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}

func TestDisplay_OrderFollowsInputForEveryPermutation(t *testing.T) {
	e := newEnv(t)
	seedThree(e)
	for _, perm := range permutations([]string{"Proteomics Data Commons", "UniProt", "cBioPortal"}) {
		if _, err := e.biome.Display(context.Background(), mustJSON(t, tools.DisplayInput{Results: perm})); err != nil {
			t.Fatalf("display %v: %v", perm, err)
		}
		got := displayedNames(t, e.queue)
		if strings.Join(got, "|") != strings.Join(perm, "|") {
			t.Fatalf("order mismatch: got %v want %v", got, perm)
		}
	}
}

func TestDisplay_Scenario_ReversedOrder(t *testing.T) {
	e := newEnv(t)
	e.srv.SetSources(
		biometest.Source("1", "Proteomics Data Commons", "PDC", "Proteomics data", "https://pdc.cancer.gov"),
		biometest.Source("2", "UniProt", "UP", "Protein sequences", ""),
	)
	if _, err := e.biome.Search(context.Background(), mustJSON(t, tools.SearchInput{Query: "proteomics"})); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := e.biome.Display(context.Background(), json.RawMessage(`["UniProt","Proteomics Data Commons"]`)); err != nil {
		t.Fatalf("display: %v", err)
	}
	got := displayedNames(t, e.queue)
	if len(got) != 2 || got[0] != "UniProt" || got[1] != "Proteomics Data Commons" {
		t.Fatalf("got %v", got)
	}
}

func TestDisplay_BareAndWrappedInputsAreEquivalent(t *testing.T) {
	inputs := []string{
		`["UniProt","cBioPortal"]`,
		`{"results":["UniProt","cBioPortal"]}`,
		`{"results":{"results":["UniProt","cBioPortal"]}}`,
	}
	var first []string
	for _, in := range inputs {
		e := newEnv(t)
		seedThree(e)
		if _, err := e.biome.Display(context.Background(), json.RawMessage(in)); err != nil {
			t.Fatalf("display %s: %v", in, err)
		}
		got := displayedNames(t, e.queue)
		if first == nil {
			first = got
			continue
		}
		if strings.Join(got, "|") != strings.Join(first, "|") {
			t.Fatalf("input %s gave %v, want %v", in, got, first)
		}
	}
}

func TestDisplay_FullRecordIncludesLogo(t *testing.T) {
	e := newEnv(t)
	seedThree(e)
	if _, err := e.biome.Display(context.Background(), json.RawMessage(`["Proteomics Data Commons"]`)); err != nil {
		t.Fatalf("display: %v", err)
	}
	ns := e.queue.Drain()
	recs := ns[0].Payload["data_sources"].([]tools.SourceRecord)
	if recs[0].Logo == nil || *recs[0].Logo != "https://pdc.cancer.gov/logo.png" {
		t.Fatalf("logo missing: %+v", recs[0])
	}
	b, _ := json.Marshal(recs[0])
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for _, k := range []string{"id", "name", "initials", "purpose", "links", "base_url", "logo"} {
		if _, ok := m[k]; !ok {
			t.Errorf("record missing %q", k)
		}
	}
	if text, _ := ns[0].Payload["response"].(string); !strings.Contains(text, "Proteomics Data Commons") {
		t.Errorf("rendered response missing name: %q", text)
	}
}

func TestDisplay_MissingName_HardFailNoPush(t *testing.T) {
	e := newEnv(t)
	seedThree(e)
	_, err := e.biome.Display(context.Background(), json.RawMessage(`["UniProt","Not A Source"]`))
	if code := toolErrorCode(t, err); code != tools.ErrCodeNotFound {
		t.Fatalf("code = %s", code)
	}
	if !strings.Contains(err.Error(), "Not A Source") {
		t.Fatalf("error should name the missing source: %v", err)
	}
	if e.queue.Len() != 0 {
		t.Fatal("nothing should be displayed when a name is missing")
	}
}

func TestDisplay_DuplicateNamesShownEachTime(t *testing.T) {
	e := newEnv(t)
	seedThree(e)
	if _, err := e.biome.Display(context.Background(), json.RawMessage(`["UniProt","cBioPortal","UniProt"]`)); err != nil {
		t.Fatalf("display: %v", err)
	}
	got := displayedNames(t, e.queue)
	if strings.Join(got, "|") != "UniProt|cBioPortal|UniProt" {
		t.Fatalf("got %v", got)
	}
}

func TestDisplay_SignalsLoopStop(t *testing.T) {
	e := newEnv(t)
	seedThree(e)
	lc := &tools.LoopControl{}
	ctx := tools.WithLoopControl(context.Background(), lc)
	out, err := e.biome.Display(ctx, json.RawMessage(`{"results":["UniProt"]}`))
	if err != nil {
		t.Fatalf("display: %v", err)
	}
	if !lc.Stopped() {
		t.Fatal("display should end the turn")
	}
	if !strings.Contains(out, "1") {
		t.Fatalf("unexpected confirmation %q", out)
	}
}

func TestDisplay_InvalidShapes(t *testing.T) {
	e := newEnv(t)
	for _, in := range []string{
		`{oops`,
		`{"results":"UniProt"}`,
		`{"names":["UniProt"]}`,
		`{"results":[]}`,
		`{"results":[1,2]}`,
		`{"results":[""]}`,
	} {
		_, err := e.biome.Display(context.Background(), json.RawMessage(in))
		if code := toolErrorCode(t, err); code != tools.ErrCodeInvalidInput {
			t.Errorf("input %s: code = %s", in, code)
		}
	}
	if len(e.srv.Requests()) != 0 {
		t.Fatal("invalid input must not reach the service")
	}
}
