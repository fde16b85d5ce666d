package irpf

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// canonical ledger, as written by EncodeLedger.
const sampleLedger = `{"command":"declare","ticker":"HGLG11","name":"CSHG Logística","category":"FII"}
{"command":"declare","ticker":"PETR4","name":"Petrobras","category":"STOCK"}
{"command":"buy","date":"2024-01-05","ticker":"PETR4","institution":"XP","quantity":100,"price":10.123,"tax":5}
{"command":"buy","date":"2024-01-08","ticker":"HGLG11","quantity":10,"price":160}
{"command":"earning","date":"2024-01-20","flow":"credit","kind":"Rendimento","ticker":"HGLG11","total":11}
{"command":"bonus","id":"bonus-1","ticker":"PETR4","dateCom":"2024-02-01","date":"2024-02-10","proportion":10,"baseValue":5}
{"command":"sell","date":"2024-02-15","ticker":"PETR4","institution":"XP","quantity":50,"price":12,"tax":2,"irrf":0.03}
{"command":"split","ticker":"PETR4","dateCom":"2024-03-01","from":1,"to":2}
{"command":"convert","origin":"PETR4","target":"PETR3","date":"2024-04-01","from":1,"to":1,"limit":10}
`

func TestDecodeLedger(t *testing.T) {
	ledger, err := DecodeLedger(strings.NewReader(sampleLedger))
	if err != nil {
		t.Fatalf("DecodeLedger() unexpected error: %v", err)
	}
	if got := ledger.Len(); got != 7 {
		t.Errorf("Len() = %d, want 7", got)
	}

	ctx := context.Background()
	all := NewRange(MustParse("2024-01-01"), MustParse("2024-12-31"))
	negotiations, err := ledger.Negotiations(ctx, all, Filter{})
	if err != nil {
		t.Fatalf("Negotiations() unexpected error: %v", err)
	}
	if len(negotiations) != 3 {
		t.Fatalf("len(Negotiations()) = %d, want 3", len(negotiations))
	}
	if !negotiations[0].IsBuy() || !negotiations[2].IsSell() {
		t.Errorf("negotiation kinds = %s, %s, want buy, sell", negotiations[0].Kind, negotiations[2].Kind)
	}
	assertMoney(t, "price", negotiations[0].Price, R(10.123))

	asset, err := ledger.Asset(ctx, "hglg11")
	if err != nil || asset == nil {
		t.Fatalf("Asset(hglg11) = %v, %v, want HGLG11", asset, err)
	}
	if asset.Category != CategoryFII {
		t.Errorf("Category = %v, want %v", asset.Category, CategoryFII)
	}

	events, _ := ledger.AssetEvents(ctx, all, Filter{})
	if len(events) != 1 || events[0].Kind != Split {
		t.Errorf("AssetEvents() = %v, want a single split", events)
	}
}

func TestDecodeLedger_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown command", `{"command":"deposit"}`, "line 1: unknown command"},
		{"invalid json", `{"command":`, "line 1: could not identify command"},
		{"invalid buy", `{"command":"buy","date":"2024-01-05","ticker":"PETR4","quantity":0,"price":10}`, "line 1: buy PETR4"},
		{"unknown category", `{"command":"declare","ticker":"PETR4","category":"BOND"}`, "line 1: unknown asset category"},
		{"bad split", "\n" + `{"command":"split","ticker":"PETR4","dateCom":"2024-03-01","from":2,"to":1}`, "line 2: split of PETR4"},
		{"bonus before entitlement", `{"command":"bonus","id":"b","ticker":"PETR4","dateCom":"2024-02-10","date":"2024-02-01","proportion":10,"baseValue":5}`, "line 1: bonus b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLedger(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("DecodeLedger() expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("DecodeLedger() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestEncodeLedger(t *testing.T) {
	ledger, err := DecodeLedger(strings.NewReader(sampleLedger))
	if err != nil {
		t.Fatalf("DecodeLedger() unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeLedger(&buf, ledger); err != nil {
		t.Fatalf("EncodeLedger() unexpected error: %v", err)
	}
	if got := buf.String(); got != sampleLedger {
		t.Errorf("EncodeLedger() mismatch:\ngot:\n%s\nwant:\n%s", got, sampleLedger)
	}
}

func TestEncodeLedger_Sorted(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.AppendNegotiation(
		buy("2024-03-01", "VALE3", 1, 60, 0),
		buy("2024-01-01", "PETR4", 1, 30, 0),
		sell("2024-03-01", "PETR4", 1, 31, 0),
	); err != nil {
		t.Fatalf("AppendNegotiation() unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeLedger(&buf, ledger); err != nil {
		t.Fatalf("EncodeLedger() unexpected error: %v", err)
	}
	want := `{"command":"buy","date":"2024-01-01","ticker":"PETR4","quantity":1,"price":30}
{"command":"buy","date":"2024-03-01","ticker":"VALE3","quantity":1,"price":60}
{"command":"sell","date":"2024-03-01","ticker":"PETR4","quantity":1,"price":31}
`
	if got := buf.String(); got != want {
		t.Errorf("EncodeLedger() mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
