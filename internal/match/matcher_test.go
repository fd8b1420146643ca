package match

import (
	"testing"
	"time"

	"bankpay/internal/core"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestMatchReferenceInDescription(t *testing.T) {
	order := core.Order{ID: "ORD123", Reference: "MBPAY-ORD123-999", Amount: 150000}
	txs := []core.Transaction{
		{RefNo: "FT100", Description: "chuyen tien MBPAY-ORD123-999 thanks", CreditAmount: 150000, Date: day("2026-08-28")},
	}
	got := Match(order, txs)
	if got == nil {
		t.Fatal("expected a match, got none")
	}
	if got.RefNo != "FT100" {
		t.Fatalf("matched wrong transaction: %q", got.RefNo)
	}
}

func TestMatchReferenceInRefNo(t *testing.T) {
	order := core.Order{Reference: "MBPAY-ORD7"}
	txs := []core.Transaction{
		{RefNo: "mbpay-ord7-xyz", Description: "no token here", CreditAmount: 500, Date: day("2026-08-28")},
	}
	if Match(order, txs) == nil {
		t.Fatal("expected match on reference number substring")
	}
}

func TestMatchRejectsDebitsAndForeignReferences(t *testing.T) {
	order := core.Order{Reference: "MBPAY-ORD123-999", Amount: 150000}
	cases := []struct {
		name string
		tx   core.Transaction
	}{
		{"debit", core.Transaction{RefNo: "FT1", Description: "MBPAY-ORD123-999", CreditAmount: 0, DebitAmount: 150000, Date: day("2026-08-28")}},
		{"foreign reference", core.Transaction{RefNo: "FT2", Description: "MBPAY-ORD999-123", CreditAmount: 150000, Date: day("2026-08-28")}},
		{"empty description and refno", core.Transaction{CreditAmount: 150000, Date: day("2026-08-28")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Match(order, []core.Transaction{tc.tx}); got != nil {
				t.Fatalf("expected no match, got %q", got.RefNo)
			}
		})
	}
}

func TestMatchAmountTolerance(t *testing.T) {
	order := core.Order{Reference: "ORD-1", Amount: 150000}
	cases := []struct {
		name   string
		credit float64
		want   bool
	}{
		{"exact", 150000, true},
		{"half unit under", 149999.5, true},
		{"half unit over", 150000.5, true},
		{"one unit off is outside the tolerance", 150001, false},
		{"two units off", 150002, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txs := []core.Transaction{{RefNo: "FT1", Description: "CK ORD-1", CreditAmount: tc.credit, Date: day("2026-08-28")}}
			got := Match(order, txs)
			if (got != nil) != tc.want {
				t.Fatalf("credit %v: matched=%v, want %v", tc.credit, got != nil, tc.want)
			}
		})
	}
}

func TestMatchNoExpectedAmountSkipsFilter(t *testing.T) {
	order := core.Order{Reference: "ORD-1"}
	txs := []core.Transaction{
		{RefNo: "FT1", Description: "CK ORD-1", CreditAmount: 42, Date: day("2026-08-28")},
	}
	if Match(order, txs) == nil {
		t.Fatal("order without expected amount should match any credit amount")
	}
}

func TestMatchTieBreakLatestDateThenLowestRefNo(t *testing.T) {
	order := core.Order{Reference: "ORD-1", Amount: 100}
	txs := []core.Transaction{
		{RefNo: "FT3", Description: "CK ORD-1", CreditAmount: 100, Date: day("2026-08-26")},
		{RefNo: "FT9", Description: "CK ORD-1", CreditAmount: 100, Date: day("2026-08-28")},
		{RefNo: "FT5", Description: "CK ORD-1", CreditAmount: 100, Date: day("2026-08-28")},
	}
	got := Match(order, txs)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.RefNo != "FT5" {
		t.Fatalf("tie-break picked %q, want FT5 (latest date, lowest refNo)", got.RefNo)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	if Match(core.Order{Reference: "ORD-1"}, nil) != nil {
		t.Fatal("empty transaction list must not match")
	}
	txs := []core.Transaction{{RefNo: "FT1", Description: "anything", CreditAmount: 10, Date: day("2026-08-28")}}
	if Match(core.Order{Reference: "  "}, txs) != nil {
		t.Fatal("blank reference must never match")
	}
}
