// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package pages

import (
	"testing"
	"testing/fstest"

	"github.com/olegiv/studio-go/internal/model"
)

func TestLoad(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []struct {
		name, path, section string
	}{
		{"home", "/", "home"},
		{"about", "/chi-siamo", "about"},
		{"services", "/servizi", "services"},
		{"gallery", "/galleria", "gallery"},
		{"contact", "/contatti", "contact"},
	}

	all := r.All()
	if len(all) != len(want) {
		t.Fatalf("len(All) = %d, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Name != w.name {
			t.Errorf("All[%d] = %s, want %s", i, all[i].Name, w.name)
		}
		p, ok := r.ByPath(w.path)
		if !ok || p.Name != w.name {
			t.Errorf("ByPath(%q) = %v, %v", w.path, p, ok)
		}
		if p, ok := r.BySection(w.section); !ok || p.Name != w.name {
			t.Errorf("BySection(%q) failed", w.section)
		}
	}
}

func TestAboutDefaults(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, _ := r.ByName("about")
	d := p.Defaults()

	if got := d.Text("page_title"); got != "Chi Siamo" {
		t.Errorf("page_title = %q", got)
	}
	list := d["philosophy_list"]
	if list.Kind() != model.KindRecordList || list.Len() != 3 {
		t.Fatalf("philosophy_list = %v/%d", list.Kind(), list.Len())
	}
	rec := list.Records()[0]
	fields := rec.Fields()
	if len(fields) != 3 || fields[0] != "title" || fields[1] != "text" || fields[2] != "color" {
		t.Errorf("field order = %v", fields)
	}
	if got, _ := rec.Get("title"); got != "Innovazione" {
		t.Errorf("title = %q", got)
	}

	if p.Types["main_text_1"] != model.TypeTextarea {
		t.Errorf("main_text_1 type = %q", p.Types["main_text_1"])
	}
	if p.Types["philosophy_list"] != model.TypeJSON {
		t.Errorf("philosophy_list type = %q", p.Types["philosophy_list"])
	}
}

func TestServicesDefaults(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, _ := r.ByName("services")
	list := p.Defaults()["services_list"]
	if list.Len() != 6 {
		t.Fatalf("services_list has %d entries, want 6", list.Len())
	}

	rec := list.Records()[1]
	if rec.IsString("features") {
		t.Error("features should be a JSON array")
	}
	raw, _ := rec.Raw("features")
	if string(raw) != `["Mixer Video 4K","Regia Audio Digitale","Intercom","Replay System"]` {
		t.Errorf("features raw = %s", raw)
	}
	// & must not be escaped.
	if got, _ := rec.Raw("title"); string(got) != `"Regia Mobile & Fissa"` {
		t.Errorf("title raw = %s", got)
	}

	if got := p.ItemLabel("services_list", 1, "desc"); got != "Descrizione Servizio 2" {
		t.Errorf("ItemLabel = %q", got)
	}
	if got := p.ItemLabel("services_list", 0, ""); got != "Servizio 1" {
		t.Errorf("ItemLabel whole = %q", got)
	}
}

func TestDefaultsAreCopies(t *testing.T) {
	r, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, _ := r.ByName("gallery")

	d := p.Defaults()
	d["images"] = d["images"].WithString(0, "/changed.jpg")
	if got := p.Defaults()["images"].Strings()[0]; got != "/images/S1.jpg" {
		t.Errorf("defaults mutated: %q", got)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing section", "name = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n"},
		{"relative path", "name = \"x\"\nsection = \"x\"\npath = \"x\"\ntemplate = \"x\"\n"},
		{"unknown key", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\nbogus = 1\n"},
		{"field without default", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n[fields]\na = { label = \"A\" }\n"},
		{"bad input", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n[fields]\na = { input = \"wysiwyg\" }\n[content]\na = \"v\"\n"},
		{"list not a list", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n[lists.a]\nlabel = \"A\"\n[content]\na = \"v\"\n"},
		{"bad type", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n[types]\na = \"html\"\n[content]\na = \"v\"\n"},
		{"unsupported value", "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n[content]\na = 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"defs/x.toml": {Data: []byte(tt.data)}}
			if _, err := LoadFS(fsys, "defs"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFS_Duplicates(t *testing.T) {
	page := "name = \"x\"\nsection = \"x\"\npath = \"/x\"\ntemplate = \"x\"\n"
	fsys := fstest.MapFS{
		"defs/a.toml": {Data: []byte(page)},
		"defs/b.toml": {Data: []byte(page)},
	}
	if _, err := LoadFS(fsys, "defs"); err == nil {
		t.Error("expected duplicate error")
	}
}
