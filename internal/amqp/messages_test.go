package amqp

import "testing"

func TestLedgerEventRoundTrip(t *testing.T) {
	e := NewLedgerEvent(EventInvoicePaid, "owner-1", "inv-42", "1100")
	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Event != EventInvoicePaid || got.OwnerID != "owner-1" || got.EntityID != "inv-42" || got.Amount != "1100" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLedgerEventFromJSONInvalid(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}
