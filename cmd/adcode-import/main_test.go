package main

import "testing"

func TestParseDataset(t *testing.T) {
	raw := []byte("\uFEFF中文名,adcode,citycode\n" +
		"中华人民共和国,100000,\n" +
		"北京市,110000,010\n" +
		"杭州市,330100,0571\n")

	rows, err := parseDataset(raw)
	if err != nil {
		t.Fatalf("parseDataset() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3 (заголовок пропущен)", len(rows))
	}

	if rows[0].Name != "中华人民共和国" || rows[0].Adcode != "100000" || rows[0].CityCode != "" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[2].Name != "杭州市" || rows[2].Adcode != "330100" || rows[2].CityCode != "0571" {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestParseDatasetWithoutHeader(t *testing.T) {
	rows, err := parseDataset([]byte("杭州市,330100,0571\n"))
	if err != nil {
		t.Fatalf("parseDataset() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "杭州市" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestParseDatasetEmpty(t *testing.T) {
	if _, err := parseDataset([]byte("中文名,adcode,citycode\n")); err == nil {
		t.Fatal("expected error for dataset without rows")
	}
}
